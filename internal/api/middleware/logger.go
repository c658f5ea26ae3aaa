package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// piiQueryKeys are find-by-phone parameters; their values stay out of logs
var piiQueryKeys = []string{"phone"}

// Logger writes one line per request. Paths in skip, such as /health, are
// only logged when they fail.
func Logger(logger *zap.Logger, skip ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		if _, ok := quiet[path]; ok && status < 500 {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", redactQuery(query)))
		}
		if uid := c.GetString(LineUserIDKey); uid != "" {
			fields = append(fields, zap.String("line_user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status == 401 || status == 403:
			logger.Warn("request denied", fields...)
		case status >= 400:
			logger.Info("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// redactQuery masks customer phone numbers in a raw query string
func redactQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	for _, k := range piiQueryKeys {
		if _, ok := values[k]; ok {
			values[k] = []string{"***"}
		}
	}
	return values.Encode()
}
