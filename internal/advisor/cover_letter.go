package advisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/logger"
)

// 求职信来源
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
)

const (
	coverLetterTemperature = 0.7
	coverLetterMaxTokens   = 800
)

// CoverLetterRequest 生成求职信的输入
type CoverLetterRequest struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Company     string   `json:"company"`
	Skills      []string `json:"skills"`
	Experience  string   `json:"experience,omitempty"`
	CompanyInfo string   `json:"company_info,omitempty"`
}

// CoverLetter 生成结果。Source 为 template 时 Reason 说明没有使用模型的原因。
type CoverLetter struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

// LetterAnalysis 求职信质量分析
type LetterAnalysis struct {
	WordCount      int      `json:"word_count"`
	ParagraphCount int      `json:"paragraph_count"`
	HasGreeting    bool     `json:"has_greeting"`
	HasClosing     bool     `json:"has_closing"`
	QualityScore   int      `json:"quality_score"`
	Suggestions    []string `json:"suggestions"`
}

// CoverLetters 求职信生成与分析
type CoverLetters struct {
	catalog *catalog.Catalog
	model   model.ToolCallingChatModel
	logger  zerolog.Logger
}

// NewCoverLetters 创建求职信服务，m 可以为 nil（只使用模板）
func NewCoverLetters(c *catalog.Catalog, m model.ToolCallingChatModel) *CoverLetters {
	return &CoverLetters{
		catalog: c,
		model:   m,
		logger:  logger.Component("cover_letter"),
	}
}

// Basic 基础模板求职信
func (cl *CoverLetters) Basic(name, role, company string) string {
	return fmt.Sprintf(`Dear Hiring Manager,

My name is %[1]s, and I am writing to express my interest in the %[2]s position at %[3]s. I have strong skills in this domain and am confident in my ability to contribute effectively to your team.

I would welcome the opportunity to bring my expertise to %[3]s and help achieve your goals.

Thank you for considering my application.

Sincerely,
%[1]s
`, name, role, company)
}

// Generate 使用模型生成个性化求职信，任何失败都回退到 Basic
func (cl *CoverLetters) Generate(ctx context.Context, req CoverLetterRequest) CoverLetter {
	fallback := func(reason string) CoverLetter {
		return CoverLetter{Text: cl.Basic(req.Name, req.Role, req.Company), Source: SourceTemplate, Reason: reason}
	}
	if cl.model == nil {
		return fallback("chat model is not configured")
	}

	resp, err := cl.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(cl.Prompt(req)),
	}, model.WithTemperature(coverLetterTemperature), model.WithMaxTokens(coverLetterMaxTokens))
	if err != nil {
		cl.logger.Error().Err(err).Str("role", req.Role).Msg("生成 AI 求职信失败，使用模板")
		return fallback(err.Error())
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return fallback("chat model returned no text")
	}

	return CoverLetter{
		Text:   cl.PostProcess(resp.Content, req.Name, req.Role, req.Company),
		Source: SourceAI,
	}
}

// Prompt 构造生成求职信的提示词
func (cl *CoverLetters) Prompt(req CoverLetterRequest) string {
	skills := "various technical skills"
	if len(req.Skills) > 0 {
		skills = strings.Join(req.Skills, ", ")
	}

	var extra strings.Builder
	if req.Experience != "" {
		extra.WriteString("Relevant Experience: " + req.Experience + "\n")
	}
	if req.CompanyInfo != "" {
		extra.WriteString("Company Information: " + req.CompanyInfo + "\n")
	}

	return FormatPrompt(mustPrompt("cover_letter"), map[string]string{
		"Name":    req.Name,
		"Role":    req.Role,
		"Company": req.Company,
		"Skills":  skills,
		"Extra":   extra.String(),
	})
}

var (
	placeholderName     = regexp.MustCompile(`(?i)\[Your Name\]`)
	placeholderCompany  = regexp.MustCompile(`(?i)\[Company Name\]`)
	placeholderPosition = regexp.MustCompile(`(?i)\[Position\]`)
	closingPhrases      = []string{"sincerely", "best regards", "thank you"}
)

// PostProcess 补全称呼和结尾，替换模型留下的占位符
func (cl *CoverLetters) PostProcess(letter, name, role, company string) string {
	letter = strings.TrimSpace(letter)

	if !strings.HasPrefix(letter, "Dear") {
		letter = "Dear Hiring Manager,\n\n" + letter
	}
	if !hasClosing(letter) {
		letter += "\n\nSincerely,\n" + name
	}

	letter = placeholderName.ReplaceAllLiteralString(letter, name)
	letter = placeholderCompany.ReplaceAllLiteralString(letter, company)
	letter = placeholderPosition.ReplaceAllLiteralString(letter, role)
	return letter
}

func hasClosing(letter string) bool {
	lower := strings.ToLower(letter)
	for _, c := range closingPhrases {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// Tips 角色相关建议加通用建议
func (cl *CoverLetters) Tips(role string) []string {
	tips := []string{}
	if r, ok := cl.catalog.Role(role); ok {
		tips = append(tips, r.CoverLetterTips...)
	}
	return append(tips, cl.catalog.GeneralCoverLetterTips...)
}

// Templates 角色的开头、正文、结尾范例，未知角色返回 false
func (cl *CoverLetters) Templates(role string) (catalog.CoverLetterTemplate, bool) {
	r, ok := cl.catalog.Role(role)
	if !ok || r.CoverLetterTemplate == (catalog.CoverLetterTemplate{}) {
		return catalog.CoverLetterTemplate{}, false
	}
	return r.CoverLetterTemplate, true
}

// Analyze 评估求职信质量。
// 长度 200-350 词 25 分（150-400 词 15 分），称呼 20，结尾 20，3-4 段 15，经历 10，公司 10。
func (cl *CoverLetters) Analyze(letter string) LetterAnalysis {
	a := LetterAnalysis{
		WordCount:   len(strings.Fields(letter)),
		HasGreeting: strings.HasPrefix(strings.TrimSpace(letter), "Dear"),
		HasClosing:  hasClosing(letter),
		Suggestions: []string{},
	}
	for _, p := range strings.Split(letter, "\n\n") {
		if strings.TrimSpace(p) != "" {
			a.ParagraphCount++
		}
	}

	score := 0
	switch {
	case a.WordCount >= 200 && a.WordCount <= 350:
		score += 25
	case a.WordCount >= 150 && a.WordCount <= 400:
		score += 15
	default:
		a.Suggestions = append(a.Suggestions, "Adjust length to 200-350 words for optimal impact")
	}

	if a.HasGreeting {
		score += 20
	} else {
		a.Suggestions = append(a.Suggestions, "Add a proper greeting (Dear Hiring Manager,)")
	}
	if a.HasClosing {
		score += 20
	} else {
		a.Suggestions = append(a.Suggestions, "Add a professional closing (Sincerely, Best regards)")
	}

	if a.ParagraphCount >= 3 && a.ParagraphCount <= 4 {
		score += 15
	} else {
		a.Suggestions = append(a.Suggestions, "Organize into 3-4 clear paragraphs")
	}

	lower := strings.ToLower(letter)
	if strings.Contains(lower, "experience") || strings.Contains(lower, "project") {
		score += 10
	} else {
		a.Suggestions = append(a.Suggestions, "Include specific examples of your experience")
	}
	if strings.Contains(lower, "company") || strings.Contains(lower, "organization") {
		score += 10
	} else {
		a.Suggestions = append(a.Suggestions, "Show knowledge of the company")
	}

	a.QualityScore = score
	return a
}
