package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"
	// ContextRequestID is the key for the request id in gin context.
	ContextRequestID = "request_id"
	contextLogger    = "logger"
)

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on
// the response and stores it in context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Log returns the request-scoped logger set by Logger, or base when the
// request did not pass through it.
func Log(c *gin.Context, base *zap.Logger) *zap.Logger {
	if v, ok := c.Get(contextLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return base
}
