package tracing

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// TracingIngress opens a server span per request, continuing an inbound
// trace when the caller carries one. Spans are named by the matched route
// pattern to keep operation cardinality low.
func TracingIngress() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()
		parent, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(c.Request.Header))

		operation := c.FullPath()
		if operation == "" {
			// unmatched routes have no pattern
			operation = c.Request.URL.Path
		}
		span := tracer.StartSpan(c.Request.Method+" "+operation, ext.RPCServerOption(parent))
		defer span.Finish()

		ext.HTTPMethod.Set(span, c.Request.Method)
		ext.HTTPUrl.Set(span, c.Request.URL.Path)
		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), span))

		c.Next()

		ext.HTTPStatusCode.Set(span, uint16(c.Writer.Status()))
	}
}
