package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/tracing"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// slowRequest 超过这个耗时记warn
const slowRequest = 3 * time.Second

// RequestLogger 请求日志中间件
//
// 为每个请求生成（或沿用上游传入的）请求ID，
// 把带request_id、trace_id的Logger放进request context，
// 后续的use case通过logger.Ctx(ctx)写日志时会自动带上这两个字段。
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := c.Request.Context()
		lctx := base.With().Str("request_id", requestID)
		if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
			lctx = lctx.Str("trace_id", traceID)
		}
		l := lctx.Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx, l))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = l.Error()
		case latency > slowRequest:
			event = l.Warn()
		default:
			event = l.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
