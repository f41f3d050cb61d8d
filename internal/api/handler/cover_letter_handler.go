package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
)

// GenerateCoverLetter POST /cover-letter，模型不可用时退回模板
func (h *Handler) GenerateCoverLetter(ctx context.Context, c *app.RequestContext) {
	var req CoverLetterRequest
	if !bind(c, &req) {
		return
	}
	letter := h.CoverLetters.Generate(ctx, req.toAdvisor())
	c.JSON(http.StatusOK, utils.H{
		"letter":   letter,
		"analysis": h.CoverLetters.Analyze(letter.Text),
	})
}

// AnalyzeCoverLetter POST /cover-letter/analyze
func (h *Handler) AnalyzeCoverLetter(ctx context.Context, c *app.RequestContext) {
	var req LetterRequest
	if !bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.CoverLetters.Analyze(req.Letter))
}

// CoverLetterTips GET /cover-letter/tips?role=
func (h *Handler) CoverLetterTips(ctx context.Context, c *app.RequestContext) {
	role := c.Query("role")
	resp := utils.H{"role": role, "tips": h.CoverLetters.Tips(role)}
	if tpl, ok := h.CoverLetters.Templates(role); ok {
		resp["template"] = tpl
	}
	c.JSON(http.StatusOK, resp)
}
