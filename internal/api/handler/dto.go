package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"careercraft-go/internal/advisor"
)

var validate = newValidator()

// newValidator 校验错误使用 json 字段名
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// TextRequest 文本 + 可选角色
type TextRequest struct {
	Text string `json:"text" validate:"max=200000"`
	Role string `json:"role" validate:"max=100"`
}

// SkillsRequest 技能列表 + 可选角色
type SkillsRequest struct {
	Skills []string `json:"skills" validate:"max=200,dive,max=100"`
	Role   string   `json:"role" validate:"max=100"`
}

// LearningPlanRequest 学习计划请求，months 为 0 时使用默认值
type LearningPlanRequest struct {
	Skills []string `json:"skills" validate:"max=200,dive,max=100"`
	Role   string   `json:"role" validate:"max=100"`
	Months int      `json:"months" validate:"gte=0,lte=36"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// CoverLetterRequest 求职信生成请求
type CoverLetterRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Role        string   `json:"role" validate:"required,max=100"`
	Company     string   `json:"company" validate:"required,max=200"`
	Skills      []string `json:"skills" validate:"max=50,dive,max=100"`
	Experience  string   `json:"experience" validate:"max=4000"`
	CompanyInfo string   `json:"company_info" validate:"max=4000"`
}

func (r CoverLetterRequest) toAdvisor() advisor.CoverLetterRequest {
	return advisor.CoverLetterRequest{
		Name:        r.Name,
		Role:        r.Role,
		Company:     r.Company,
		Skills:      r.Skills,
		Experience:  r.Experience,
		CompanyInfo: r.CompanyInfo,
	}
}

// LetterRequest 求职信分析请求
type LetterRequest struct {
	Letter string `json:"letter" validate:"required,max=20000"`
}

// InterviewStartRequest 模拟面试开始请求，role 为空时使用会话中的角色
type InterviewStartRequest struct {
	Role string `json:"role" validate:"max=100"`
}

// InterviewAnswerRequest 模拟面试回答
type InterviewAnswerRequest struct {
	Answer string `json:"answer" validate:"max=8000"`
}

// SessionResponse 会话快照
type SessionResponse struct {
	SessionID      string   `json:"session_id"`
	HasResume      bool     `json:"has_resume"`
	Skills         []string `json:"skills"`
	BestRole       string   `json:"best_role,omitempty"`
	TargetRole     string   `json:"target_role,omitempty"`
	ChatTurns      int      `json:"chat_turns"`
	LastAnalysisID string   `json:"last_analysis_id,omitempty"`
	InterviewRole  string   `json:"interview_role,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}
