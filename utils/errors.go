package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError is an error meant for an API client. Message is what the client
// sees; Err stays in the logs.
type AppError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{} // logged alongside the error
}

// NewAppError wraps err for the response with the given status. err may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: map[string]interface{}{},
	}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext records key for the error log line and returns e for chaining
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// BadRequestError rejects a malformed upload or query parameter
func BadRequestError(message string, err error) *AppError {
	return NewAppError(fiber.StatusBadRequest, message, err)
}

// UnauthorizedError rejects a missing or invalid bearer token
func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(fiber.StatusUnauthorized, message, err)
}

// NotFoundError reports an unknown analysis or thread
func NotFoundError(message string, err error) *AppError {
	return NewAppError(fiber.StatusNotFound, message, err)
}

// TooManyRequestsError is returned by the rate limiter
func TooManyRequestsError(message string, err error) *AppError {
	return NewAppError(fiber.StatusTooManyRequests, message, err)
}

// InternalServerError hides storage and encoding failures behind message
func InternalServerError(message string, err error) *AppError {
	return NewAppError(fiber.StatusInternalServerError, message, err)
}
