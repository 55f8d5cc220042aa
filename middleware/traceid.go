package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kasuganosora/codepals/journal"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"

	maxTraceIDLen = 64
)

// TraceID injects a UUID trace ID into every request context and response
// header. A caller-supplied id is reused unless it is too long. The id is also attached to the request's context.Context so
// journal entries recorded while serving it carry the same id.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(journal.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(TraceIDKey); exists {
		return v.(string)
	}
	return ""
}
