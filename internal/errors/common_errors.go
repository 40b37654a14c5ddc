package errors

import (
	"errors"
	"fmt"

	"cohortetl/pkg/contracts/domain"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeStructural covers unreadable sources and missing required columns.
	// Structural errors abort the run before anything is published.
	ErrTypeStructural ErrorType = "STRUCTURAL"
	// ErrTypeDataQuality covers row-level problems that exclude a row but not the run
	ErrTypeDataQuality ErrorType = "DATA_QUALITY"
	// ErrTypeIntegrity covers facts referencing a dimension key that does not exist
	ErrTypeIntegrity ErrorType = "INTEGRITY"
	ErrTypeConfig    ErrorType = "CONFIG"
	ErrTypePublish   ErrorType = "PUBLISH"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Reason  domain.ReasonCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewStructuralError creates a fatal source error
func NewStructuralError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStructural, message, cause)
}

// MissingColumnError reports a required column absent from a source
func MissingColumnError(path, sheet, column string) *AppError {
	msg := fmt.Sprintf("required column %q missing in %s", column, path)
	if sheet != "" {
		msg = fmt.Sprintf("required column %q missing in %s [%s]", column, path, sheet)
	}
	return NewStructuralError(msg, nil).
		WithContext("path", path).
		WithContext("column", column)
}

// NewDataQualityError creates a recoverable row-level error
func NewDataQualityError(reason domain.ReasonCode, message string) *AppError {
	e := NewAppError(ErrTypeDataQuality, message, nil)
	e.Reason = reason
	return e
}

// NewIntegrityError creates an error for a dangling dimension reference
func NewIntegrityError(message string) *AppError {
	e := NewAppError(ErrTypeIntegrity, message, nil)
	e.Reason = domain.ReasonOrphanKey
	return e
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewPublishError creates an error raised while publishing the star schema
func NewPublishError(message string, cause error) *AppError {
	return NewAppError(ErrTypePublish, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsStructural reports whether err should abort the run
func IsStructural(err error) bool {
	return TypeOf(err) == ErrTypeStructural
}

// IsDataQuality reports whether err is a recoverable row-level error
func IsDataQuality(err error) bool {
	return TypeOf(err) == ErrTypeDataQuality
}

// ReasonOf returns the reason code carried by err, if any
func ReasonOf(err error) domain.ReasonCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
