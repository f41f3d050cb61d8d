package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"
	"go.opentelemetry.io/otel/trace"

	"careercraft-go/internal/logger"
	"careercraft-go/internal/tracing"
)

// HeaderRequestID 请求ID响应头
const HeaderRequestID = "X-Request-ID"

var errInvalidAPIKey = errors.New("invalid api key")

// RequestID 透传或生成请求ID，并把带 request_id 字段的日志记录器放入上下文
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set("request_id", id)

		l := logger.Logger.With().Str("request_id", id).Logger()
		c.Next(l.WithContext(ctx))
	}
}

// AccessLog 记录请求耗时和状态码
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		status := c.Response.StatusCode()

		evt := logger.Ctx(ctx).Info()
		if status >= http.StatusInternalServerError {
			evt = logger.Ctx(ctx).Error()
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), fmt.Errorf("%s %s: status %d", c.Method(), c.Path(), status), status)
		}
		evt.Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Timeout 为每个请求设置处理超时
func Timeout(d time.Duration) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if d <= 0 {
			c.Next(ctx)
			return
		}
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		c.Next(tctx)
	}
}

// APIKeyAuth 校验请求头中的 API Key
func APIKeyAuth(header string, keys []string) app.HandlerFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			allowed = append(allowed, []byte(k))
		}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+header, ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			for _, k := range allowed {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.H{"error": "无效或缺失的 API Key"})
		}),
	)
}
