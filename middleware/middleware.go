// Package middleware contains the gin middleware shared by every module.
package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"blogpp/auth"
	"blogpp/common"
)

const requestIDHeader = "X-Request-ID"

// RequestID generates an id for each request, stores it as requestID and
// echoes it in the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gonanoid.New(12)
		if err != nil {
			zap.L().Warn("Failed to generate request id", zap.Error(err))
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Logger writes one access log line per request, tagged with the request id
// and the authenticated user when there is one.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Skipper: func(c *gin.Context) bool {
			return c.Request.Method == "HEAD"
		},
		Context: func(c *gin.Context) []zapcore.Field {
			fields := []zapcore.Field{}

			if v := common.RequestID(c); v != "" {
				fields = append(fields, zap.String("request_id", v))
			}

			if p := auth.Current(c); p != nil {
				fields = append(fields, zap.Uint("user_id", p.UserID))
			}

			return fields
		},
	})
}

func Recovery(log *zap.Logger) gin.HandlerFunc {
	return ginzap.RecoveryWithZap(log, true)
}
