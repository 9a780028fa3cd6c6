package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unklab-dev/kampusbot-go/internal/ctxutil"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

// securityHeadersMiddleware adds security headers to all responses.
// Reference: https://gin-gonic.com/en/docs/examples/security-headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// requestIDMiddleware stamps each request with an ID so log lines from
// one exchange can be correlated.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("method", method).
			WithField("path", path).
			WithField("status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("ip", c.ClientIP())

		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("Request completed with errors")
		} else {
			switch {
			case status >= 500:
				entry.Error("Request failed")
			case status >= 400:
				entry.Warn("Request completed with client error")
			default:
				entry.Debug("Request completed")
			}
		}
	}
}

// rateLimitMiddleware enforces the global limit first, then the
// per-session one. Sessionless requests are throttled by client IP.
func (a *Application) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.globalLimiter.Allow() {
			a.metrics.RecordRateLimiterDrop("global")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": apperrors.GetUserMessage(apperrors.ErrRateLimitExceeded),
			})
			return
		}

		key := c.GetHeader("X-Session-ID")
		if key == "" {
			key = c.ClientIP()
		}
		if !a.userLimiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": apperrors.GetUserMessage(apperrors.ErrRateLimitExceeded),
			})
			return
		}
		c.Next()
	}
}
