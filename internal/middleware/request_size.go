package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "tour-booking-api/pkg/errors"
)

const (
	DefaultMaxRequestSize = 10 << 10
)

// RequestSizeLimitMiddleware limits the size of incoming bodies to maxSize bytes.
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			_ = c.Error(appErrors.ErrBodyTooLarge)
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
