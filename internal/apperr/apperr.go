// Package apperr defines RepoMesh's error taxonomy as a sum type carried by
// value through the service layer, per the transport-agnostic error design.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the four first-class kinds the core surfaces, the
// INTERNAL_ERROR kind for unexpected failures, plus the two additive
// JSON-RPC-only codes the MCP dispatcher uses for envelope-level failures
// that never reach a service method.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeValidationError  Code = "VALIDATION_ERROR"
	CodeInternalError    Code = "INTERNAL_ERROR"
	CodeInvalidMethod    Code = "INVALID_METHOD"
	CodeUnknownTool      Code = "UNKNOWN_TOOL"
)

// AppError is the concrete carrier. Message is human-readable; Details holds
// structured context (e.g. expected/actual counts) surfaced verbatim in the
// JSON-RPC error object and the HTTP error envelope.
type AppError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s with id '%s' not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

func Conflict(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidationError,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Wrap preserves an existing AppError's code/status while prefixing the
// message, or demotes any other error to an internal error.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return &AppError{
			Code:       ae.Code,
			Message:    fmt.Sprintf("%s: %s", message, ae.Message),
			HTTPStatus: ae.HTTPStatus,
			Details:    ae.Details,
			Err:        err,
		}
	}
	return Internal(message, err)
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func Is(err error, code Code) bool {
	ae, ok := As(err)
	return ok && ae.Code == code
}

// HTTPStatus returns the mapped status, defaulting to 500 for non-AppErrors.
func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		return ae.HTTPStatus
	}
	return http.StatusInternalServerError
}
