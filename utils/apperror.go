package utils

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeToolExecution     = "TOOL_EXECUTION_ERROR"
	CodeUpstream          = "UPSTREAM_SERVICE_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks; every AppError matches the sentinel of its code.
var (
	ErrNotFound          = &AppError{Code: CodeNotFound}
	ErrInvalidInput      = &AppError{Code: CodeInvalidInput}
	ErrInvalidTransition = &AppError{Code: CodeInvalidTransition}
	ErrSlotUnavailable   = &AppError{Code: CodeSlotUnavailable}
	ErrToolExecution     = &AppError{Code: CodeToolExecution}
	ErrUpstream          = &AppError{Code: CodeUpstream}
)

// AppError is the domain failure carried from services to the HTTP boundary.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(format string, args ...any) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusNotFound}
}

func InvalidInput(format string, args ...any) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot transition appointment from %q to %q", from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"from": from, "to": to},
	}
}

func SlotUnavailable(format string, args ...any) *AppError {
	return &AppError{Code: CodeSlotUnavailable, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusConflict}
}

func ToolExecution(tool string, err error) *AppError {
	return &AppError{
		Code:       CodeToolExecution,
		Message:    fmt.Sprintf("tool %s failed", tool),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"tool": tool},
		Err:        err,
	}
}

func Upstream(service string, err error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("%s is unavailable", service),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// AsAppError unwraps err into an AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}
