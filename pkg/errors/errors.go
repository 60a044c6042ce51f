package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = New("VALIDATION_ERROR", "Invalid input data", http.StatusBadRequest)
	ErrMissingCredentials = New("MISSING_CREDENTIALS", "Please provide email and password", http.StatusBadRequest)
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Incorrect email or password", http.StatusUnauthorized)

	ErrMissingToken   = New("MISSING_TOKEN", "You are not logged in. Please log in to get access", http.StatusUnauthorized)
	ErrInvalidToken   = New("INVALID_TOKEN", "Invalid token. Please log in again", http.StatusUnauthorized)
	ErrExpiredToken   = New("EXPIRED_TOKEN", "Your token has expired. Please log in again", http.StatusUnauthorized)
	ErrUnknownSubject = New("UNKNOWN_SUBJECT", "The user belonging to this token no longer exists", http.StatusUnauthorized)
	ErrStaleSession   = New("STALE_SESSION", "User recently changed password. Please log in again", http.StatusUnauthorized)
	ErrForbidden      = New("FORBIDDEN", "You do not have permission to perform this action", http.StatusForbidden)

	ErrUserNotFound             = New("USER_NOT_FOUND", "There is no user with that email address", http.StatusNotFound)
	ErrUserAlreadyExists        = New("USER_ALREADY_EXISTS", "A user with that email already exists", http.StatusConflict)
	ErrPasswordUpdateNotAllowed = New("PASSWORD_UPDATE_NOT_ALLOWED", "This route is not for password updates. Please use /updateMyPassword", http.StatusBadRequest)
	ErrInvalidOrExpiredToken    = New("INVALID_OR_EXPIRED_TOKEN", "Token is invalid or has expired", http.StatusBadRequest)
	ErrDeliveryFailure          = New("DELIVERY_FAILURE", "There was an error sending the email. Try again later", http.StatusInternalServerError)

	ErrNotFound     = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrDuplicate    = New("DUPLICATE", "Duplicate field value. Please use another value", http.StatusConflict)
	ErrRateLimited  = New("RATE_LIMITED", "Too many requests from this IP, please try again later", http.StatusTooManyRequests)
	ErrBodyTooLarge = New("BODY_TOO_LARGE", "Request body too large", http.StatusRequestEntityTooLarge)
	ErrInternal     = New("INTERNAL_ERROR", "Something went wrong", http.StatusInternalServerError)
)

// AppError is an operational failure: expected, and safe to describe to the caller.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Fields     map[string][]string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinels still match after WithMessage/Wrap.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Status is "fail" for client errors and "error" for everything else.
func (e *AppError) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

func (e *AppError) WithMessage(message string) *AppError {
	c := *e
	c.Message = message
	return &c
}

func (e *AppError) Wrap(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewValidationError keeps one message list per field.
func NewValidationError(fields map[string][]string) *AppError {
	c := *ErrValidation
	c.Fields = fields
	return &c
}

// NotFound builds a 404 naming the resource kind and id.
func NotFound(resource, id string) *AppError {
	return ErrNotFound.WithMessage(fmt.Sprintf("No %s found with id %s", resource, id))
}

// AsAppError reports whether err is operational and returns it.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
