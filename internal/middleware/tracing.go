package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing OpenTelemetry链路追踪中间件
func Tracing(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从HTTP头提取上游trace上下文
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		// 未匹配路由统一命名，避免span名基数过高
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := telemetry.Tracer().Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.client_ip", c.ClientIP()),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("service.name", serviceName),
				attribute.String("request.id", GetRequestID(c)),
			),
		)
		defer span.End()

		// 后续处理器与服务层沿用带span的context
		c.Request = c.Request.WithContext(ctx)

		// 注入TraceID到响应头，便于日志关联
		if span.SpanContext().HasTraceID() {
			c.Header("X-Trace-ID", span.SpanContext().TraceID().String())
		}

		c.Next()

		// 记录响应状态码
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		// 5xx记为错误，4xx属于客户端问题
		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP server error")
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		}
	}
}
