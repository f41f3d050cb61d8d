package processor

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"careercraft-go/internal/outbox"
	"careercraft-go/internal/storage/models"
	"careercraft-go/pkg/utils"
)

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// buildRecord 把分析结果转换为历史记录
func buildRecord(a *Analysis, reports bool) *models.AnalysisRecord {
	status := models.ReportStatusSkipped
	if reports {
		status = models.ReportStatusPending
	}
	return &models.AnalysisRecord{
		RecordID:      a.ID,
		SessionID:     a.SessionID,
		Role:          a.Role,
		Source:        a.Source,
		Filename:      a.Filename,
		TextMD5:       a.TextMD5,
		WordCount:     a.Stats.Words,
		SkillScore:    a.Match.Score,
		WeightedScore: a.Weighted.Score,
		ATSScore:      a.ATS.Score,
		Skills:        utils.ConvertArrayToJSON(a.Skills),
		MatchedSkills: utils.ConvertArrayToJSON(a.Match.Matched),
		MissingSkills: utils.ConvertArrayToJSON(a.Match.Missing),
		ATSFeedback:   utils.ConvertArrayToJSON(a.ATS.Feedback),
		ATSComponents: utils.ConvertToJSON(a.ATS.Components),
		ReportStatus:  status,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.CreatedAt,
	}
}

// recordHistory 写入历史记录和 outbox 消息，失败只记录日志
func (p *CareerProcessor) recordHistory(ctx context.Context, a *Analysis) {
	reports := p.ReportsEnabled()
	record := buildRecord(a, reports)

	var msg *models.OutboxMessage
	if reports {
		var err error
		msg, err = outbox.NewAnalysisCompletedMessage(models.AnalysisCompletedEvent{
			RecordID:   record.RecordID,
			SessionID:  record.SessionID,
			Role:       record.Role,
			OccurredAt: a.CreatedAt,
		}, p.set.ReportsExchange, p.set.AnalysisRoutingKey)
		if err != nil {
			p.logger.Warn().Err(err).Str("record_id", record.RecordID).Msg("构造 outbox 消息失败，仅保存历史记录")
			record.ReportStatus = models.ReportStatusSkipped
		}
	}

	if err := p.comp.History.SaveAnalysisWithOutbox(ctx, record, msg); err != nil {
		p.logger.Warn().Err(err).Str("record_id", record.RecordID).Msg("保存分析历史失败")
		return
	}
	a.Report = record.ReportStatus
}
