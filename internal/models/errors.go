package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the error type returned across service and repository boundaries.
type AppError struct {
	Code    string
	Message string
	Fields  []FieldError
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

// Is matches another AppError by code and message so sentinel values can be
// compared with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewValidationError returns a 400 error with a single message.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewFieldValidationError returns a 400 error carrying per-field details. The
// message is taken from the first field.
func NewFieldValidationError(fields ...FieldError) *AppError {
	msg := "Validation failed"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &AppError{Code: CodeValidation, Message: msg, Fields: fields}
}

// NewUnauthorizedError returns a 401 error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewForbiddenError returns a 403 error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewNotFoundError returns a 404 error for the named resource.
func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Err:     fmt.Errorf("%s %v does not exist", resource, id),
	}
}

// NewConflictError returns a uniqueness error. The message names the field.
func NewConflictError(field, message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// NewInternalError wraps an unexpected failure. The wrapped error is logged,
// never sent to clients.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe.Code
		}
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeConflict:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Pagination is the paging block attached to list responses.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Envelope is the uniform JSON response body.
type Envelope struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	Data       any          `json:"data,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Code       string       `json:"code,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
}

// RespondWithError writes an error envelope. Internal details never leave the
// process; 5xx responses carry a generic message.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	body := Envelope{Success: false}

	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Errors = appErr.Fields
	case err != nil:
		body.Code = CodeInternal
		body.Message = http.StatusText(status)
		var fe *fiber.Error
		if errors.As(err, &fe) && status < 500 {
			body.Message = fe.Message
		}
	}
	if status >= 500 {
		body.Code = CodeInternal
		body.Message = "Internal server error"
		body.Errors = nil
	}

	return c.Status(status).JSON(body)
}

// RespondWithData writes a success envelope.
func RespondWithData(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Message: message, Data: data})
}
