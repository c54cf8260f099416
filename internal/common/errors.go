package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ValidationError flags a rejected input, naming the first violated field.
// These block only the attempted action; the session stays editable.
func ValidationError(field, message string, err error) *AppError {
	e := NewAppError("VALIDATION", message, http.StatusUnprocessableEntity, err)
	if field != "" {
		e.Details = map[string]string{"field": field}
	}
	return e
}

// ReconciliationError flags amounts that do not add up, such as split
// portions missing the expected total.
func ReconciliationError(message string, err error) *AppError {
	return NewAppError("RECONCILIATION", message, http.StatusUnprocessableEntity, err)
}

// UpstreamError flags a collaborator failure. The session is left intact so
// the cashier can retry or continue without the collaborator.
func UpstreamError(service string, err error) *AppError {
	e := NewAppError("UPSTREAM", service+" unavailable", http.StatusBadGateway, err)
	e.Details = map[string]string{"service": service}
	return e
}
