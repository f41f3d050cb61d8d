package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"careercraft-go/internal/catalog"
	"careercraft-go/internal/constants"
	"careercraft-go/internal/logger"
	"careercraft-go/internal/storage"
	"careercraft-go/internal/storage/models"
	"careercraft-go/internal/tracing"
	"careercraft-go/pkg/utils"
)

// 报告内容类型
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeText = "text/plain; charset=utf-8"
)

var (
	// ErrReportNotReady 报告尚未生成
	ErrReportNotReady = errors.New("report is not ready")
	// ErrUnknownFile 不是 report.csv 或 report.txt
	ErrUnknownFile = errors.New("unknown report file")
)

// RecordStore 分析记录读写，storage.MySQL 实现了该接口
type RecordStore interface {
	GetAnalysis(ctx context.Context, recordID string) (*models.AnalysisRecord, error)
	UpdateReportStatus(ctx context.Context, recordID, status, prefix, reason string) error
}

// Service 生成报告并提供下载链接
type Service struct {
	records RecordStore
	objects storage.ObjectStorage
	catalog *catalog.Catalog
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewService 创建报告服务，cat 可以为空
func NewService(records RecordStore, objects storage.ObjectStorage, cat *catalog.Catalog) *Service {
	return &Service{
		records: records,
		objects: objects,
		catalog: cat,
		logger:  logger.Component("report"),
		tracer:  otel.Tracer("careercraft-go/report"),
	}
}

// ObjectPrefix 报告对象前缀，例如 reports/{record_id}
func ObjectPrefix(recordID string) string {
	return path.Join(constants.ReportObjectPrefix, recordID)
}

// Handle 处理 analysis.completed 消息，返回值决定 ack/nack，可直接作为 storage.MessageHandler 使用
func (s *Service) Handle(ctx context.Context, body []byte) bool {
	var evt models.AnalysisCompletedEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.RecordID == "" {
		// 格式错误的消息重试也无法成功
		s.logger.Error().Err(err).Str("body", tracing.TruncateString(string(body), 200)).Msg("无法解析 analysis.completed 消息，丢弃")
		return true
	}

	err := s.Generate(ctx, evt.RecordID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrRecordNotFound):
		s.logger.Warn().Str("record_id", evt.RecordID).Msg("分析记录不存在，丢弃消息")
		return true
	default:
		s.logger.Error().Err(err).Str("record_id", evt.RecordID).Msg("生成报告失败")
		return false
	}
}

// Generate 为一条分析记录生成 CSV 和文本报告，已完成的记录直接跳过
func (s *Service) Generate(ctx context.Context, recordID string) error {
	ctx, span := s.tracer.Start(ctx, "Report.Generate",
		trace.WithAttributes(attribute.String("analysis.record_id", recordID)))
	defer span.End()

	rec, err := s.records.GetAnalysis(ctx, recordID)
	if err != nil {
		if !errors.Is(err, storage.ErrRecordNotFound) {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
		}
		return err
	}
	if rec.ReportStatus == models.ReportStatusReady {
		s.logger.Debug().Str("record_id", recordID).Msg("报告已存在，跳过")
		return nil
	}

	prefix := ObjectPrefix(recordID)
	if err := s.upload(ctx, rec, prefix); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStorage)
		if uerr := s.records.UpdateReportStatus(ctx, recordID, models.ReportStatusFailed, "", tracing.TruncateString(err.Error(), 500)); uerr != nil {
			s.logger.Warn().Err(uerr).Str("record_id", recordID).Msg("更新报告状态失败")
		}
		return err
	}

	if err := s.records.UpdateReportStatus(ctx, recordID, models.ReportStatusReady, prefix, ""); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("更新报告状态失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Info().Str("record_id", recordID).Str("prefix", prefix).Msg("报告已生成")
	return nil
}

func (s *Service) upload(ctx context.Context, rec *models.AnalysisRecord, prefix string) error {
	csvData, err := BuildCSV(rec)
	if err != nil {
		return err
	}
	csvName := path.Join(prefix, constants.ReportCSVName)
	if _, err := s.objects.PutBytes(ctx, csvName, csvData, ContentTypeCSV); err != nil {
		return fmt.Errorf("上传 CSV 报告失败: %w", err)
	}
	if _, err := s.objects.PutBytes(ctx, path.Join(prefix, constants.ReportTextName), BuildText(rec, s.catalog), ContentTypeText); err != nil {
		// 不留下只有一半的报告
		if derr := s.objects.DeleteFile(ctx, csvName); derr != nil {
			s.logger.Warn().Err(derr).Str("object", csvName).Msg("清理 CSV 报告失败")
		}
		return fmt.Errorf("上传文本报告失败: %w", err)
	}
	return nil
}

// Links 报告下载信息，Status 不是 READY 时不含链接
type Links struct {
	RecordID  string     `json:"record_id"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CSV       string     `json:"csv_url,omitempty"`
	Text      string     `json:"text_url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Links 返回报告状态和预签名下载链接
func (s *Service) Links(ctx context.Context, recordID string, expiry time.Duration) (*Links, error) {
	rec, err := s.records.GetAnalysis(ctx, recordID)
	if err != nil {
		return nil, err
	}

	out := &Links{RecordID: recordID, Status: rec.ReportStatus, Error: rec.ReportError}
	if rec.ReportStatus != models.ReportStatusReady || rec.ReportPrefix == "" {
		return out, nil
	}

	if out.CSV, err = s.objects.GetPresignedURL(ctx, path.Join(rec.ReportPrefix, constants.ReportCSVName), expiry); err != nil {
		return nil, err
	}
	if out.Text, err = s.objects.GetPresignedURL(ctx, path.Join(rec.ReportPrefix, constants.ReportTextName), expiry); err != nil {
		return nil, err
	}
	out.ExpiresAt = utils.TimePtr(time.Now().Add(expiry).UTC())
	return out, nil
}

// Download 直接读取报告内容，file 为 report.csv 或 report.txt。
// 客户端无法访问对象存储的预签名地址时使用。
func (s *Service) Download(ctx context.Context, recordID, file string) ([]byte, string, error) {
	contentType := ""
	switch file {
	case constants.ReportCSVName:
		contentType = ContentTypeCSV
	case constants.ReportTextName:
		contentType = ContentTypeText
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFile, file)
	}

	rec, err := s.records.GetAnalysis(ctx, recordID)
	if err != nil {
		return nil, "", err
	}
	if rec.ReportStatus != models.ReportStatusReady || rec.ReportPrefix == "" {
		return nil, "", ErrReportNotReady
	}
	data, err := s.objects.GetBytes(ctx, path.Join(rec.ReportPrefix, file))
	if err != nil {
		return nil, "", fmt.Errorf("读取报告失败: %w", err)
	}
	return data, contentType, nil
}
