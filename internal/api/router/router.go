package router

import (
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"careercraft-go/internal/api/handler"
)

// Options 路由注册选项
type Options struct {
	APIKeys        []string
	AuthHeader     string
	RequestTimeout time.Duration
	// 由 hertztracing.NewServerTracer 返回，为空时不挂载 tracing 中间件
	Tracing *hertztracing.Config
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hd *handler.Handler, opts Options) {
	if opts.Tracing != nil {
		h.Use(hertztracing.ServerMiddleware(opts.Tracing))
	}
	h.Use(RequestID(), AccessLog())

	// 健康检查不鉴权
	h.GET("/api/v1/health", hd.Health)

	mws := []app.HandlerFunc{Timeout(opts.RequestTimeout)}
	if len(opts.APIKeys) > 0 {
		header := opts.AuthHeader
		if header == "" {
			header = "X-API-Key"
		}
		mws = append(mws, APIKeyAuth(header, opts.APIKeys))
	}
	api := h.Group("/api/v1", mws...)

	sessions := api.Group("/sessions")
	sessions.POST("", hd.CreateSession)
	sessions.GET("/:id", hd.GetSession)
	sessions.DELETE("/:id", hd.DeleteSession)
	sessions.POST("/:id/reset", hd.ResetSession)
	sessions.POST("/:id/resume", hd.UploadResume)
	sessions.POST("/:id/analyze", hd.AnalyzeText)
	sessions.GET("/:id/analyses", hd.ListAnalyses)
	sessions.POST("/:id/chat", hd.Chat)
	sessions.POST("/:id/interview", hd.StartInterview)
	sessions.POST("/:id/interview/answer", hd.AnswerInterview)
	sessions.GET("/:id/interview", hd.InterviewSummary)

	api.POST("/skills/extract", hd.ExtractSkills)
	api.POST("/skills/match", hd.MatchSkills)
	api.POST("/skills/export", hd.ExportSkills)
	api.POST("/ats/score", hd.ScoreATS)
	api.POST("/ats/report", hd.ATSReport)
	api.POST("/learning-plan", hd.LearningPlan)
	api.GET("/courses", hd.Courses)
	api.GET("/jobs", hd.Jobs)
	api.GET("/communities", hd.Communities)

	api.GET("/roles", hd.Roles)
	api.GET("/roles/:role", hd.Role)
	api.GET("/roles/:role/salary", hd.Salary)
	api.GET("/roles/:role/progression", hd.Progression)
	api.GET("/roles/:role/interview", hd.InterviewPrep)

	api.POST("/cover-letter", hd.GenerateCoverLetter)
	api.POST("/cover-letter/analyze", hd.AnalyzeCoverLetter)
	api.GET("/cover-letter/tips", hd.CoverLetterTips)

	api.GET("/reports/:id", hd.GetReport)
	api.GET("/reports/:id/:file", hd.DownloadReport)
}
