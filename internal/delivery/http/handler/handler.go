// Package handler adapts the use cases to gin. Handlers never write error
// envelopes themselves: they record the error with c.Error and
// middleware.ErrorHandler answers.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking-api/internal/query"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

var errInvalidBody = appErrors.ErrValidation.WithMessage("Invalid request body")

// bindJSON decodes the body into dst. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bodyError(err)
	}
	return nil
}

// bindPayload decodes the body as a free-form object with every string escaped.
func bindPayload(c *gin.Context) (map[string]any, error) {
	payload := make(map[string]any)
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, bodyError(err)
	}
	utils.SanitizePayload(payload)
	return payload, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return appErrors.ErrBodyTooLarge
	case errors.Is(err, io.EOF):
		return errInvalidBody.WithMessage("Request body is empty")
	default:
		return errInvalidBody.Wrap(err)
	}
}

// queryParams flattens the query string, keeping the first value of a repeated key.
func queryParams(c *gin.Context) query.Params {
	values := c.Request.URL.Query()
	params := make(query.Params, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
