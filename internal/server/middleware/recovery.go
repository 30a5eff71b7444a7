// Package middleware provides gin middleware for the DataStatX server.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/apperr"
)

// Recovery turns a panic into a 500 local processing error.
func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"error":      fmt.Sprintf("%v", err),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"request_id": c.GetString(RequestIDKey),
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    apperr.CodeInternal,
					"kind":    apperr.LocalProcessing.String(),
					"message": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
