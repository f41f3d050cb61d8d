package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"careercraft-go/internal/parser"
	"careercraft-go/internal/processor"
	"careercraft-go/internal/session"
	pkgutils "careercraft-go/pkg/utils"
)

func toSessionResponse(s *session.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:      s.ID,
		HasResume:      s.ResumeText != "",
		Skills:         s.Skills,
		BestRole:       s.BestRole,
		TargetRole:     s.TargetRole,
		ChatTurns:      len(s.ChatHistory),
		LastAnalysisID: s.LastAnalysisID,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if resp.Skills == nil {
		resp.Skills = []string{}
	}
	if s.Interview != nil {
		resp.InterviewRole = s.Interview.Role
	}
	return resp
}

// CreateSession POST /sessions
func (h *Handler) CreateSession(ctx context.Context, c *app.RequestContext) {
	sess, err := h.Store.Create(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("创建会话失败")
		writeError(c, http.StatusInternalServerError, "会话存储暂不可用")
		return
	}
	c.JSON(http.StatusCreated, utils.H{"session_id": sess.ID})
}

// GetSession GET /sessions/:id
func (h *Handler) GetSession(ctx context.Context, c *app.RequestContext) {
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// ResetSession POST /sessions/:id/reset
func (h *Handler) ResetSession(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	sess, err := h.Store.Reset(ctx, id)
	if err != nil {
		h.sessionError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// DeleteSession DELETE /sessions/:id
func (h *Handler) DeleteSession(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	if err := h.Store.Delete(ctx, id); err != nil {
		h.sessionError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnalyzeText POST /sessions/:id/analyze
func (h *Handler) AnalyzeText(ctx context.Context, c *app.RequestContext) {
	var req TextRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	analysis, err := h.Processor.AnalyzeText(ctx, sess, req.Text, req.Role)
	if err != nil {
		h.analysisError(c, sess.ID, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// UploadResume POST /sessions/:id/resume，multipart 字段 file 和可选的 role
func (h *Handler) UploadResume(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "文件未找到")
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "文件超过大小限制: "+strconv.FormatInt(h.MaxUploadBytes>>20, 10)+"MB")
		return
	}
	role := strings.TrimSpace(string(c.FormValue("role")))

	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "打开文件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "读取文件失败")
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "文件超过大小限制")
		return
	}

	analysis, err := h.Processor.AnalyzeUpload(ctx, sess, fileHeader.Filename, data, role)
	if err != nil {
		h.analysisError(c, sess.ID, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) analysisError(c *app.RequestContext, sessionID string, err error) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		writeError(c, http.StatusBadRequest, "不支持的文件格式，请上传 PDF 或纯文本简历")
	case errors.Is(err, processor.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(c, http.StatusNotFound, "会话不存在或已过期")
	default:
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("简历分析失败")
		writeError(c, http.StatusInternalServerError, "简历分析失败")
	}
}

// Chat POST /sessions/:id/chat，模型故障以 Reply.Status 返回而不是 HTTP 错误
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	var req ChatRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}

	reply := h.Chatbot.Ask(ctx, sess, req.Message)
	if reply.Answered() {
		if err := h.Store.Save(ctx, sess); err != nil {
			h.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("保存聊天记录失败")
		}
	}
	c.JSON(http.StatusOK, reply)
}

// ListAnalyses GET /sessions/:id/analyses?limit=
func (h *Handler) ListAnalyses(ctx context.Context, c *app.RequestContext) {
	if h.History == nil {
		writeError(c, http.StatusNotFound, "未启用分析历史")
		return
	}
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := h.History.ListAnalyses(ctx, sess.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sess.ID).Msg("查询分析历史失败")
		writeError(c, http.StatusInternalServerError, "查询分析历史失败")
		return
	}

	items := make([]utils.H, 0, len(records))
	for _, r := range records {
		missing, _ := pkgutils.ParseJSONArray(r.MissingSkills)
		items = append(items, utils.H{
			"analysis_id":    r.RecordID,
			"role":           r.Role,
			"source":         r.Source,
			"filename":       r.Filename,
			"skill_score":    r.SkillScore,
			"weighted_score": r.WeightedScore,
			"ats_score":      r.ATSScore,
			"missing":        missing,
			"report_status":  r.ReportStatus,
			"created_at":     r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, utils.H{"session_id": sess.ID, "analyses": items})
}

// StartInterview POST /sessions/:id/interview
func (h *Handler) StartInterview(ctx context.Context, c *app.RequestContext) {
	var req InterviewStartRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}

	role := firstNonEmpty(req.Role, sess.TargetRole, sess.BestRole)
	state := h.Simulator.Start(role)
	sess.Interview = &state
	if err := h.Store.Save(ctx, sess); err != nil {
		h.sessionError(c, sess.ID, err)
		return
	}
	c.JSON(http.StatusOK, h.Simulator.Current(state))
}

// AnswerInterview POST /sessions/:id/interview/answer
func (h *Handler) AnswerInterview(ctx context.Context, c *app.RequestContext) {
	var req InterviewAnswerRequest
	if !bind(c, &req) {
		return
	}
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	if sess.Interview == nil {
		writeError(c, http.StatusBadRequest, "模拟面试尚未开始")
		return
	}

	next := h.Simulator.Answer(*sess.Interview, strings.TrimSpace(req.Answer))
	sess.Interview = &next
	if err := h.Store.Save(ctx, sess); err != nil {
		h.sessionError(c, sess.ID, err)
		return
	}
	c.JSON(http.StatusOK, h.Simulator.Current(next))
}

// InterviewSummary GET /sessions/:id/interview
func (h *Handler) InterviewSummary(ctx context.Context, c *app.RequestContext) {
	sess, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	if sess.Interview == nil {
		writeError(c, http.StatusBadRequest, "模拟面试尚未开始")
		return
	}
	c.JSON(http.StatusOK, h.Simulator.Summary(*sess.Interview))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
