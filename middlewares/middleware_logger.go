package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-pos/utils"
)

const (
	RequestIDHeader  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" && path != "/ws" {
			path = path + "?" + raw
		}

		c.Next()

		fields := logrus.Fields{
			"request_id": c.GetString(ContextRequestID),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		}
		if user := c.GetString(ContextUserName); user != "" {
			fields["user"] = user
		}
		entry := utils.InfoLogger.WithFields(fields)
		if len(c.Errors) > 0 {
			utils.ErrorLogger.WithFields(fields).Printf("%s %s: %s", c.Request.Method, path, c.Errors.String())
			return
		}
		entry.Printf("%s %s", c.Request.Method, path)
	}
}
