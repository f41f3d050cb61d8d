package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"careercraft-go/internal/advisor"
	"careercraft-go/internal/agent"
	"careercraft-go/internal/api/handler"
	"careercraft-go/internal/api/router"
	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/config"
	"careercraft-go/internal/logger"
	"careercraft-go/internal/outbox"
	"careercraft-go/internal/parser"
	"careercraft-go/internal/processor"
	"careercraft-go/internal/ratelimit"
	"careercraft-go/internal/report"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
	"careercraft-go/internal/storage"
	"careercraft-go/internal/tracing"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var configPath, sampleConfig string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认路径查找")
	pflag.StringVar(&sampleConfig, "init-config", "", "写出示例配置文件后退出")
	pflag.Parse()

	if sampleConfig != "" {
		if err := config.CreateSampleConfig(sampleConfig); err != nil {
			logger.Fatal().Err(err).Msg("生成示例配置失败")
		}
		logger.Info().Str("path", sampleConfig).Msg("示例配置已生成")
		return
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	closer, err := logger.Init(cfg.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	defer closer.Close()
	log := logger.Component("main")
	log.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing, cfg.Server.ServiceName, version)
	if err != nil {
		log.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("加载职业数据失败")
	}
	log.Info().Int("roles", len(cat.RoleNames())).Msg("职业数据加载成功")

	stores, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer stores.Close()
	log.Info().Interface("status", stores.Status()).Msg("存储服务初始化完成")

	store := newSessionStore(cfg, stores)

	var chatModel model.ToolCallingChatModel
	if cfg.LLM.Enabled() {
		m, err := agent.NewChatModel(agent.Config{
			APIKey:      cfg.LLM.APIKey,
			APIURL:      cfg.LLM.APIURL,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     config.GetDuration(cfg.LLM.Timeout, 60*time.Second),
		}, agent.WithLogger(logger.Component("llm")))
		if err != nil {
			log.Fatal().Err(err).Msg("初始化LLM失败")
		}
		chatModel = ratelimit.Wrap(m, cfg.LLM.QPM, cfg.LLM.MaxRetries, time.Duration(cfg.LLM.RetryWaitSeconds)*time.Second)
		log.Info().Str("model", m.ModelName()).Int("qpm", cfg.LLM.QPM).Msg("LLM初始化成功")
	} else {
		log.Warn().Msg("未配置 LLM API Key，对话和求职信将使用离线回复")
	}

	pdfExtractor, err := newPDFExtractor(ctx, cfg.PDF)
	if err != nil {
		log.Fatal().Err(err).Msg("创建PDF提取器失败")
	}

	extractor := skills.NewExtractor(cat.Vocabulary())
	scorer := ats.NewScorer(cat, ats.Weights{
		Keywords:      cfg.Scoring.KeywordWeight,
		Format:        cfg.Scoring.FormatWeight,
		Content:       cfg.Scoring.ContentWeight,
		Compatibility: cfg.Scoring.CompatibilityWeight,
	})

	comps := []processor.ComponentOpt{
		processor.WithExtractor(pdfExtractor),
		processor.WithSkillExtractor(extractor),
		processor.WithCatalog(cat),
		processor.WithScorer(scorer),
		processor.WithStore(store),
	}
	if stores.MySQL != nil {
		comps = append(comps, processor.WithHistory(stores.MySQL))
	}
	if stores.Redis != nil {
		comps = append(comps, processor.WithCache(stores.Redis))
	}
	sets := []processor.SettingOpt{
		processor.WithHistoryEnabled(cfg.Server.EnableHistory && stores.HistoryEnabled()),
		processor.WithLogger(logger.Component("processor")),
	}
	if cfg.Server.EnableHistory && stores.ReportsEnabled() {
		sets = append(sets, processor.WithReports(cfg.RabbitMQ.ReportsExchange, cfg.RabbitMQ.AnalysisRoutingKey))
	}
	proc, err := processor.NewCareerProcessor(processor.NewComponents(comps...), nil, sets...)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化分析处理器失败")
	}

	deps := handler.Deps{
		Catalog:        cat,
		Skills:         extractor,
		ATS:            scorer,
		Store:          store,
		Processor:      proc,
		Chatbot:        advisor.NewChatbot(chatModel, advisor.WithHistoryTurns(cfg.LLM.HistoryTurns), advisor.WithTemperature(float32(cfg.LLM.Temperature)), advisor.WithMaxTokens(cfg.LLM.MaxTokens)),
		CoverLetters:   advisor.NewCoverLetters(cat, chatModel),
		Interview:      advisor.NewInterview(cat),
		Simulator:      advisor.NewSimulator(cat),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		ReportExpiry:   config.GetDuration(cfg.Server.ReportURLExpiry, 15*time.Minute),
	}
	if stores.MySQL != nil {
		deps.History = stores.MySQL
	}

	var relay *outbox.MessageRelay
	if proc.ReportsEnabled() {
		relayOpts := []outbox.Option{
			outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.RelayInterval, 5*time.Second)),
		}
		if stores.Redis != nil {
			relayOpts = append(relayOpts, outbox.WithLocker(stores.Redis))
		}
		relay = outbox.NewMessageRelay(stores.MySQL.DB(), stores.RabbitMQ, relayOpts...)
		relay.Start(ctx)
		log.Info().Msg("消息中继服务已启动")

		reports := report.NewService(stores.MySQL, stores.MinIO, cat)
		deps.Reports = reports
		workers := max(cfg.RabbitMQ.ReportWorkers, 1)
		for i := 0; i < workers; i++ {
			if err := stores.RabbitMQ.StartConsumer(ctx, cfg.RabbitMQ.ReportQueue, cfg.RabbitMQ.PrefetchCount, reports.Handle); err != nil {
				log.Fatal().Err(err).Msg("启动报告消费者失败")
			}
		}
		log.Info().Int("workers", workers).Str("queue", cfg.RabbitMQ.ReportQueue).Msg("报告消费者已启动")
	} else if stores.MySQL != nil && stores.MinIO != nil {
		// 只读模式：仍可查询已有报告
		deps.Reports = report.NewService(stores.MySQL, stores.MinIO, cat)
	}

	hd := handler.New(deps)

	// multipart 额外开销留 1MB 余量
	bodyLimit := (cfg.Server.MaxUploadMB + 1) << 20
	tracer, tracingCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(bodyLimit),
		server.WithHandleMethodNotAllowed(true),
		server.WithExitWaitTime(config.GetDuration(cfg.Server.ShutdownTimeout, 5*time.Second)),
	)
	router.RegisterRoutes(h, hd, router.Options{
		APIKeys:        cfg.Auth.APIKeys,
		AuthHeader:     cfg.Auth.Header,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout, 60*time.Second),
		Tracing:        tracingCfg,
	})
	log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	// 先停止中继和消费者，再关闭 HTTP
	if relay != nil {
		relay.Stop()
		log.Info().Msg("消息中继服务已停止")
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务器关闭失败")
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}
	log.Info().Msg("优雅退出完成")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// newPDFExtractor 按配置选择 PDF 解析引擎
func newPDFExtractor(ctx context.Context, cfg config.PDFConfig) (parser.PDFExtractor, error) {
	timeout := config.GetDuration(cfg.Timeout, 30*time.Second)
	log := logger.Component("main")
	if cfg.Engine == "tika" {
		log.Info().Str("url", cfg.TikaURL).Str("metadata", cfg.MetadataMode).Msg("使用Tika PDF解析器")
		return parser.NewTikaPDFExtractor(cfg.TikaURL,
			parser.WithMetadataMode(parser.MetadataMode(cfg.MetadataMode)),
			parser.WithTikaTimeout(timeout),
			parser.WithTikaLogger(logger.Component("tika")),
		)
	}
	log.Info().Msg("使用Eino PDF解析器")
	return parser.NewEinoPDFTextExtractor(ctx,
		parser.WithExtractTimeout(timeout),
		parser.WithEinoLogger(logger.Component("pdf")),
	)
}

// newSessionStore 配置为 redis 且 Redis 可用时使用 Redis，否则退回内存存储
func newSessionStore(cfg *config.Config, stores *storage.Storage) session.Store {
	ttl := config.GetDuration(cfg.Session.TTL, 2*time.Hour)
	log := logger.Component("main")
	if cfg.Session.Store == "redis" {
		if stores.Redis != nil {
			log.Info().Dur("ttl", ttl).Msg("会话存储: redis")
			return session.NewRedisStore(stores.Redis.Client, ttl)
		}
		log.Warn().Msg("Redis 不可用，会话存储退回内存")
	}
	log.Info().Dur("ttl", ttl).Msg("会话存储: memory")
	return session.NewMemoryStore(ttl)
}
