package middleware

import "github.com/gin-gonic/gin"

// SecurityHeadersMiddleware sets the response headers a JSON API should always send.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()

		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		headers.Set("Cross-Origin-Resource-Policy", "same-origin")

		c.Next()
	}
}
