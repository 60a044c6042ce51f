package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tour-booking-api/internal/config"
	"tour-booking-api/internal/logger"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

// ErrorHandler writes the envelope for the last error a handler recorded
// with c.Error. Operational errors are described to the client; anything
// else becomes a generic 500, with the detail only in development.
func ErrorHandler(environment string) gin.HandlerFunc {
	development := environment == config.EnvDevelopment

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if appErr, ok := appErrors.AsAppError(err); ok && appErr.StatusCode < http.StatusInternalServerError {
			c.JSON(appErr.StatusCode, utils.Response{
				Status:  appErr.Status(),
				Message: appErr.Message,
				Errors:  appErr.Fields,
			})
			return
		}

		logger.WithRequestID(GetRequestID(c)).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
			zap.String("event", "request_failed"),
		)
		writeInternal(c, err, development)
	}
}

// Recovery turns a panic into the same generic 500 envelope.
func Recovery(environment string) gin.HandlerFunc {
	development := environment == config.EnvDevelopment

	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithRequestID(GetRequestID(c)).Error("Recovered from panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("event", "panic_recovered"),
		)
		writeInternal(c, appErrors.ErrInternal.Wrap(fmt.Errorf("panic: %v", recovered)), development)
		c.Abort()
	})
}

// NoRoute answers unknown routes with the not found envelope.
func NoRoute(c *gin.Context) {
	_ = c.Error(appErrors.ErrNotFound.WithMessage("Can't find " + c.Request.URL.Path + " on this server"))
}

func writeInternal(c *gin.Context, err error, development bool) {
	status := http.StatusInternalServerError
	message := appErrors.ErrInternal.Message
	if appErr, ok := appErrors.AsAppError(err); ok {
		status = appErr.StatusCode
		message = appErr.Message
	}

	resp := utils.Response{Status: utils.StatusError, Message: message}
	if development {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}
