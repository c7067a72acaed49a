package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes form a closed taxonomy. Handlers map them onto HTTP statuses
// via StatusFor; adding a kind means updating every controller contract.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeUnauthed    = "UNAUTHENTICATED"
	CodeForbidden   = "FORBIDDEN"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError is a typed application failure. Message is the machine-readable
// string that ends up in the response envelope; Err (if any) is internal
// detail that is logged but never serialized.
type AppError struct {
	Code    string
	Message string
	Err     error
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

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewUnauthenticatedError reports a missing or unusable caller identity.
func NewUnauthenticatedError() *AppError {
	return &AppError{Code: CodeUnauthed, Message: "unauthorized"}
}

// NewForbiddenError reports a caller that is not the resource owner.
func NewForbiddenError() *AppError {
	return &AppError{Code: CodeForbidden, Message: "forbidden"}
}

// NewNotFoundError reports a missing resource by its message key,
// e.g. "post_not_found".
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// NewConflictError reports a uniqueness violation, e.g. "email_already_exists".
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewUnsupportedMediaError reports a rejected upload content type.
func NewUnsupportedMediaError() *AppError {
	return &AppError{Code: CodeMediaType, Message: "unsupported_media_type"}
}

// NewUnavailableError reports a failed call to the model service on
// endpoints whose entire purpose is that call.
func NewUnavailableError(err error) *AppError {
	return &AppError{Code: CodeUnavailable, Message: "model_service_unavailable", Err: err}
}

// NewInternalError wraps an unexpected failure. The wrapped error is never
// exposed to clients.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal_server_error", Err: err}
}

// StatusFor maps an error onto its HTTP status. Unknown errors are treated
// as internal.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation:
		return fiber.StatusUnprocessableEntity
	case CodeUnauthed:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeConflict:
		return fiber.StatusConflict
	case CodeMediaType:
		return fiber.StatusUnsupportedMediaType
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Envelope is the uniform response wrapper: {message, data}.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Respond writes a success envelope with the given status.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Message: message, Data: data})
}

// RespondWithError writes an error envelope. The status and message come
// from the taxonomy; internal detail stays out of the body.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}
	return c.Status(StatusFor(appErr)).JSON(Envelope{Message: appErr.Message, Data: nil})
}
