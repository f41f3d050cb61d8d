package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"careercraft-go/internal/report"
	"careercraft-go/internal/storage"
)

// GetReport GET /reports/:id，返回报告状态和预签名下载链接
func (h *Handler) GetReport(ctx context.Context, c *app.RequestContext) {
	if h.Reports == nil {
		writeError(c, http.StatusNotFound, "未启用报告存储")
		return
	}
	id := c.Param("id")
	links, err := h.Reports.Links(ctx, id, h.ReportExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			writeError(c, http.StatusNotFound, "报告不存在")
			return
		}
		h.logger.Error().Err(err).Str("record_id", id).Msg("获取报告链接失败")
		writeError(c, http.StatusInternalServerError, "获取报告失败")
		return
	}
	c.JSON(http.StatusOK, links)
}

// DownloadReport GET /reports/:id/:file，经服务端转发报告内容
func (h *Handler) DownloadReport(ctx context.Context, c *app.RequestContext) {
	if h.Reports == nil {
		writeError(c, http.StatusNotFound, "未启用报告存储")
		return
	}
	id, file := c.Param("id"), c.Param("file")
	data, contentType, err := h.Reports.Download(ctx, id, file)
	switch {
	case err == nil:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
		c.Data(http.StatusOK, contentType, data)
	case errors.Is(err, storage.ErrRecordNotFound), errors.Is(err, report.ErrUnknownFile):
		writeError(c, http.StatusNotFound, "报告不存在")
	case errors.Is(err, report.ErrReportNotReady):
		writeError(c, http.StatusConflict, "报告尚未生成")
	default:
		h.logger.Error().Err(err).Str("record_id", id).Str("file", file).Msg("下载报告失败")
		writeError(c, http.StatusInternalServerError, "下载报告失败")
	}
}
