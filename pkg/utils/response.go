package utils

import (
	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Token   string              `json:"token,omitempty"`
	Results *int                `json:"results,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

func ListResponse(c *gin.Context, statusCode int, results int, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  StatusSuccess,
		Results: &results,
		Data:    data,
	})
}

func MessageResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  StatusSuccess,
		Message: message,
	})
}

func TokenResponse(c *gin.Context, statusCode int, token string, data interface{}) {
	c.JSON(statusCode, Response{
		Status: StatusSuccess,
		Token:  token,
		Data:   data,
	})
}

// ErrorResponse writes a fail (4xx) or error (5xx) envelope.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  errorStatus(statusCode),
		Message: message,
	})
}

func errorStatus(statusCode int) string {
	if statusCode >= 400 && statusCode < 500 {
		return StatusFail
	}
	return StatusError
}
