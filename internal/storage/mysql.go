package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"careercraft-go/internal/config"
	"careercraft-go/internal/logger"
	"careercraft-go/internal/storage/models"
	"careercraft-go/internal/tracing"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = gorm.ErrRecordNotFound

var mysqlTracer = otel.Tracer("careercraft-go/storage/mysql")

type gormSpanKey struct{}

// GormTracingPlugin 为 GORM 的每次数据库操作创建 OpenTelemetry span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{tracer: mysqlTracer, dbName: dbName}
}

// Name 插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册 before/after 回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	register := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")) },
		func() error { return cb.Create().After("gorm:create").Register("otel:after_create", p.after()) },
		func() error { return cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")) },
		func() error { return cb.Query().After("gorm:query").Register("otel:after_query", p.after()) },
		func() error { return cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")) },
		func() error { return cb.Update().After("gorm:update").Register("otel:after_update", p.after()) },
		func() error { return cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")) },
		func() error { return cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()) },
		func() error { return cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")) },
		func() error { return cb.Row().After("gorm:row").Register("otel:after_row", p.after()) },
		func() error { return cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")) },
		func() error { return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()) },
	}
	for _, r := range register {
		if err := r(); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.SkipHooks {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, table),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", table),
			))
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if stmt := db.Statement.SQL.String(); stmt != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.TruncateString(stmt, tracing.DefaultMaxLength)))
		}

		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// MySQL 保存分析历史与 outbox
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建 MySQL 客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	m, err := NewMySQLFromDB(db, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := m.autoMigrateSchema(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
		}
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL")
	return m, nil
}

// NewMySQLFromDB 包装已打开的 gorm 连接并注册追踪插件
func NewMySQLFromDB(db *gorm.DB, cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		cfg = &config.MySQLConfig{}
	}
	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}
	return &MySQL{db: db, cfg: cfg}, nil
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (m *MySQL) autoMigrateSchema() error {
	silent := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(gormlogger.Silent)})
	if err := silent.AutoMigrate(&models.AnalysisRecord{}, &models.OutboxMessage{}); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	logger.Info().Msg("GORM数据库结构迁移成功")
	return nil
}

// DB 返回 GORM 连接
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// SaveAnalysisWithOutbox 在同一事务中写入分析记录与 outbox 消息
func (m *MySQL) SaveAnalysisWithOutbox(ctx context.Context, record *models.AnalysisRecord, msg *models.OutboxMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveAnalysisWithOutbox", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.record_id", record.RecordID),
		attribute.String("analysis.role", record.Role),
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("写入分析记录失败: %w", err)
		}
		if msg == nil {
			return nil
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("写入 outbox 消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetAnalysis 按 ID 读取分析记录，不存在时返回 ErrRecordNotFound
func (m *MySQL) GetAnalysis(ctx context.Context, recordID string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	if err := m.db.WithContext(ctx).Where("record_id = ?", recordID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAnalyses 返回会话最近的分析记录，按时间倒序
func (m *MySQL) ListAnalyses(ctx context.Context, sessionID string, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.AnalysisRecord
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateReportStatus 更新报告状态与对象前缀
func (m *MySQL) UpdateReportStatus(ctx context.Context, recordID, status, prefix, reason string) error {
	res := m.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Where("record_id = ?", recordID).
		Updates(map[string]interface{}{
			"report_status": status,
			"report_prefix": prefix,
			"report_error":  reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
