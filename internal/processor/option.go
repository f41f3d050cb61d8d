package processor

import (
	"time"

	"github.com/rs/zerolog"

	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/parser"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// NewComponents 用选项构造 Components
func NewComponents(opts ...ComponentOpt) *Components {
	c := &Components{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ----- 组件选项 -----

// WithExtractor 设置PDF提取器组件
func WithExtractor(extractor parser.PDFExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithSkillExtractor 设置技能提取器
func WithSkillExtractor(e *skills.Extractor) ComponentOpt {
	return func(c *Components) {
		c.Skills = e
	}
}

// WithCatalog 设置静态数据目录
func WithCatalog(cat *catalog.Catalog) ComponentOpt {
	return func(c *Components) {
		c.Catalog = cat
	}
}

// WithScorer 设置 ATS 评分器
func WithScorer(s *ats.Scorer) ComponentOpt {
	return func(c *Components) {
		c.ATS = s
	}
}

// WithStore 设置会话存储
func WithStore(store session.Store) ComponentOpt {
	return func(c *Components) {
		c.Store = store
	}
}

// WithHistory 设置历史记录写入器
func WithHistory(h HistoryRecorder) ComponentOpt {
	return func(c *Components) {
		c.History = h
	}
}

// WithCache 设置 ATS 结果缓存
func WithCache(cache ATSCache) ComponentOpt {
	return func(c *Components) {
		c.Cache = cache
	}
}

// ----- 设置选项 -----

// WithHistoryEnabled 是否写入分析历史
func WithHistoryEnabled(enabled bool) SettingOpt {
	return func(s *Settings) {
		s.EnableHistory = enabled
	}
}

// WithReports 启用异步报告，分析完成事件发往 exchange/routingKey
func WithReports(exchange, routingKey string) SettingOpt {
	return func(s *Settings) {
		s.ReportsExchange = exchange
		s.AnalysisRoutingKey = routingKey
	}
}

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) SettingOpt {
	return func(s *Settings) {
		if now != nil {
			s.Now = now
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = &l
	}
}
