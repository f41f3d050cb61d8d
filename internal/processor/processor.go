// Package processor 串联文本提取、技能提取、匹配评分和 ATS 反馈，生成一次完整的简历分析。
package processor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/logger"
	"careercraft-go/internal/parser"
	"careercraft-go/internal/resume"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
	"careercraft-go/internal/storage/models"
	"careercraft-go/internal/tracing"
	"careercraft-go/pkg/utils"
)

var tracer = otel.Tracer("careercraft-go/processor")

// 角色来源
const (
	RoleSourceTarget = "target"
	RoleSourceBest   = "best"
)

// HistoryRecorder 分析历史写入，storage.MySQL 实现了该接口
type HistoryRecorder interface {
	SaveAnalysisWithOutbox(ctx context.Context, record *models.AnalysisRecord, msg *models.OutboxMessage) error
}

// ATSCache ATS 结果缓存，storage.Redis 实现了该接口
type ATSCache interface {
	GetCachedATSResult(ctx context.Context, role, textMD5 string) ([]byte, error)
	CacheATSResult(ctx context.Context, role, textMD5 string, payload []byte) error
}

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	Extractor parser.PDFExtractor
	Skills    *skills.Extractor
	Catalog   *catalog.Catalog
	ATS       *ats.Scorer
	Store     session.Store

	// 可选
	History HistoryRecorder
	Cache   ATSCache
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	EnableHistory      bool
	ReportsExchange    string
	AnalysisRoutingKey string
	Now                func() time.Time
	Logger             *zerolog.Logger
}

// Analysis 一次分析的结构化结果
type Analysis struct {
	ID        string    `json:"analysis_id,omitempty"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Filename  string    `json:"filename,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Role       string                `json:"role"`
	RoleSource string                `json:"role_source"`
	BestRole   string                `json:"best_role,omitempty"`
	Skills     []string              `json:"skills"`
	Match      skills.MatchResult    `json:"match"`
	Weighted   skills.WeightedResult `json:"weighted"`
	ATS        ats.Result            `json:"ats"`
	Courses    []catalog.Course      `json:"courses"`
	Jobs       []catalog.JobPosting  `json:"jobs"`
	Contact    resume.ContactInfo    `json:"contact"`
	Quality    resume.Quality        `json:"quality"`
	Stats      resume.Stats          `json:"stats"`
	Sections   map[string]string     `json:"sections,omitempty"`
	TextMD5    string                `json:"text_md5,omitempty"`
	Report     string                `json:"report_status,omitempty"`
}

// CareerProcessor 简历分析流水线
type CareerProcessor struct {
	comp   Components
	set    Settings
	logger zerolog.Logger
}

// NewCareerProcessor 使用组件和设置创建处理器
func NewCareerProcessor(comp *Components, set *Settings, opts ...SettingOpt) (*CareerProcessor, error) {
	if comp == nil || comp.Skills == nil || comp.Catalog == nil || comp.ATS == nil || comp.Store == nil {
		return nil, ErrNotConfigured
	}
	if set == nil {
		set = &Settings{}
	}
	for _, opt := range opts {
		opt(set)
	}
	if set.Now == nil {
		set.Now = time.Now
	}

	p := &CareerProcessor{comp: *comp, set: *set}
	if set.Logger != nil {
		p.logger = *set.Logger
	} else {
		p.logger = logger.Component("processor")
	}
	if p.comp.History == nil && p.set.EnableHistory {
		p.logger.Warn().Msg("已启用历史记录但未注入 HistoryRecorder，历史记录将被跳过")
	}
	return p, nil
}

// ReportsEnabled 是否为分析生成异步报告
func (p *CareerProcessor) ReportsEnabled() bool {
	return p.historyEnabled() && p.set.ReportsExchange != ""
}

func (p *CareerProcessor) historyEnabled() bool {
	return p.set.EnableHistory && p.comp.History != nil
}

// AnalyzeText 分析粘贴的简历文本
func (p *CareerProcessor) AnalyzeText(ctx context.Context, sess *session.Session, text, role string) (*Analysis, error) {
	if sess == nil {
		return nil, newInputError("", "会话为空")
	}
	return p.analyze(ctx, sess, source{kind: models.SourceText, text: resume.Clean(text)}, role)
}

// AnalyzeUpload 分析上传的简历文件，支持 .pdf/.txt/.md
func (p *CareerProcessor) AnalyzeUpload(ctx context.Context, sess *session.Session, filename string, data []byte, role string) (*Analysis, error) {
	if sess == nil {
		return nil, newInputError("", "会话为空")
	}
	doc, err := parser.TextFromUpload(ctx, p.comp.Extractor, filename, data)
	if err != nil {
		return nil, newParseError(sess.ID, err)
	}
	return p.analyze(ctx, sess, source{kind: models.SourceUpload, filename: doc.Filename, text: doc.Text, warning: doc.Warning}, role)
}

type source struct {
	kind     string
	filename string
	text     string
	warning  string
}

func (p *CareerProcessor) analyze(ctx context.Context, sess *session.Session, src source, role string) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "CareerProcessor.Analyze",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("analysis.source", src.kind),
			attribute.String("analysis.filename", tracing.SafeAttributeValue("filename", src.filename, tracing.DefaultMaxLength)),
			attribute.Int("analysis.text_length", len(src.text)),
		))
	defer span.End()

	now := p.set.Now()
	a := &Analysis{
		SessionID: sess.ID,
		Source:    src.kind,
		Filename:  src.filename,
		Warning:   src.warning,
		CreatedAt: now,
		Skills:    []string{},
		Courses:   []catalog.Course{},
		Jobs:      []catalog.JobPosting{},
	}

	role = strings.TrimSpace(role)
	if strings.TrimSpace(src.text) == "" {
		if a.Warning == "" {
			a.Warning = parser.WarningNoText
		}
		a.Role, a.RoleSource = p.emptyRole(role)
		a.Match = skills.MatchRole(nil, p.comp.Catalog, a.Role)
		a.Weighted = skills.WeightedMatchRole(nil, p.comp.Catalog, a.Role)
		a.ATS = p.comp.ATS.Score("", a.Role)
		span.SetAttributes(attribute.Bool("analysis.empty", true))
		return a, nil
	}

	a.Skills = p.comp.Skills.Extract(src.text)
	a.BestRole, _ = skills.BestRole(a.Skills, p.comp.Catalog)
	a.Role, a.RoleSource = role, RoleSourceTarget
	if role == "" {
		a.Role, a.RoleSource = a.BestRole, RoleSourceBest
	}

	a.Match = skills.MatchRole(a.Skills, p.comp.Catalog, a.Role)
	a.Weighted = skills.WeightedMatchRole(a.Skills, p.comp.Catalog, a.Role)
	a.TextMD5 = utils.CalculateMD5([]byte(src.text))
	a.ATS = p.scoreATS(ctx, src.text, a.Role, a.TextMD5)

	for _, s := range a.Match.Missing {
		if c, ok := p.comp.Catalog.Course(s); ok {
			a.Courses = append(a.Courses, c)
		}
	}
	a.Jobs = append(a.Jobs, p.comp.Catalog.JobsForRole(a.Role)...)

	a.Contact = resume.ExtractContactInfo(src.text)
	a.Quality = resume.Validate(src.text)
	a.Stats = resume.Statistics(src.text)
	a.Sections = resume.ExtractSections(src.text)

	span.SetAttributes(
		attribute.String("analysis.role", a.Role),
		attribute.Int("analysis.skills", len(a.Skills)),
		attribute.Int("analysis.match_score", a.Match.Score),
		attribute.Int("analysis.ats_score", a.ATS.Score),
		// 邮箱只记录掩码
		attribute.String("analysis.contact_email", tracing.SafeAttributeValue("contact_email", a.Contact.Email, tracing.DefaultMaxLength)),
	)

	if p.historyEnabled() {
		id, err := newRecordID()
		if err != nil {
			p.logger.Warn().Err(err).Msg("生成分析ID失败，跳过历史记录")
		} else {
			a.ID = id
		}
	}

	sess.ResumeText = src.text
	sess.Skills = append([]string{}, a.Skills...)
	sess.BestRole = a.BestRole
	if a.RoleSource == RoleSourceTarget {
		sess.TargetRole = a.Role
	}
	if a.ID != "" {
		sess.LastAnalysisID = a.ID
	}
	sess.UpdatedAt = now
	if err := p.comp.Store.Save(ctx, sess); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, newSessionError(sess.ID, err)
	}

	if a.ID != "" {
		p.recordHistory(ctx, a)
	}

	p.logger.Info().
		Str("session_id", sess.ID).
		Str("role", a.Role).
		Int("skills", len(a.Skills)).
		Int("match_score", a.Match.Score).
		Int("ats_score", a.ATS.Score).
		Msg("简历分析完成")
	return a, nil
}

// emptyRole 文本为空时无法推断最佳角色，未指定目标时使用默认角色
func (p *CareerProcessor) emptyRole(role string) (string, string) {
	if role != "" {
		return role, RoleSourceTarget
	}
	return p.comp.Catalog.DefaultRole().Name, RoleSourceBest
}

// scoreATS 先查缓存，未命中时计算并回写
func (p *CareerProcessor) scoreATS(ctx context.Context, text, role, textMD5 string) ats.Result {
	if p.comp.Cache != nil {
		if data, err := p.comp.Cache.GetCachedATSResult(ctx, role, textMD5); err == nil {
			var cached ats.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached
			}
			p.logger.Debug().Str("role", role).Msg("ATS 缓存内容无法解析，重新计算")
		}
	}

	res := p.comp.ATS.Score(text, role)

	if p.comp.Cache != nil {
		payload, err := json.Marshal(res)
		if err == nil {
			err = p.comp.Cache.CacheATSResult(ctx, role, textMD5, payload)
		}
		if err != nil {
			p.logger.Debug().Err(err).Msg("写入 ATS 缓存失败")
		}
	}
	return res
}
