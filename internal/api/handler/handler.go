// Package handler 实现 /api/v1 下的 HTTP 处理函数
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"careercraft-go/internal/advisor"
	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/logger"
	"careercraft-go/internal/processor"
	"careercraft-go/internal/report"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
	"careercraft-go/internal/storage/models"
)

// HistoryLister 查询会话的分析历史，storage.MySQL 实现了该接口
type HistoryLister interface {
	ListAnalyses(ctx context.Context, sessionID string, limit int) ([]models.AnalysisRecord, error)
}

// Deps Handler 的依赖，Reports 和 History 可以为空
type Deps struct {
	Catalog      *catalog.Catalog
	Skills       *skills.Extractor
	ATS          *ats.Scorer
	Store        session.Store
	Processor    *processor.CareerProcessor
	Chatbot      *advisor.Chatbot
	CoverLetters *advisor.CoverLetters
	Interview    *advisor.Interview
	Simulator    *advisor.Simulator
	Reports      *report.Service
	History      HistoryLister

	MaxUploadBytes int64
	ReportExpiry   time.Duration
	Now            func() time.Time
}

// Handler 聚合所有 HTTP 处理函数
type Handler struct {
	Deps
	logger zerolog.Logger
}

// New 创建 Handler
func New(deps Deps) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	if deps.ReportExpiry <= 0 {
		deps.ReportExpiry = 15 * time.Minute
	}
	if deps.Interview == nil && deps.Catalog != nil {
		deps.Interview = advisor.NewInterview(deps.Catalog)
	}
	if deps.Simulator == nil && deps.Catalog != nil {
		deps.Simulator = advisor.NewSimulator(deps.Catalog)
	}
	return &Handler{Deps: deps, logger: logger.Component("http")}
}

// Health 健康检查
func (h *Handler) Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{"status": "ok"})
}

// writeError 统一错误响应格式 {"error": "..."}
func writeError(c *app.RequestContext, status int, msg string) {
	c.AbortWithStatusJSON(status, utils.H{"error": msg})
}

// bind 解析 JSON 请求体并校验，失败时已写入 400
func bind(c *app.RequestContext, req any) bool {
	if len(c.Request.Body()) > 0 {
		if err := c.BindJSON(req); err != nil {
			writeError(c, http.StatusBadRequest, "请求体不是有效的 JSON")
			return false
		}
	}
	if err := validate.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("参数 %s 校验失败: %s", fe.Field(), fe.Tag())
	}
	return "参数校验失败"
}

// loadSession 按路径参数读取会话，失败时已写入响应
func (h *Handler) loadSession(ctx context.Context, c *app.RequestContext) (*session.Session, bool) {
	id := c.Param("id")
	sess, err := h.Store.Get(ctx, id)
	if err != nil {
		h.sessionError(c, id, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) sessionError(c *app.RequestContext, id string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(c, http.StatusNotFound, "会话不存在或已过期")
		return
	}
	h.logger.Error().Err(err).Str("session_id", id).Msg("访问会话存储失败")
	writeError(c, http.StatusInternalServerError, "会话存储暂不可用")
}
