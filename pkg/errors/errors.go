// Package errors classifies pipeline failures so callers can decide whether
// to retry, skip a category, or abort the run.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeSelector   ErrorType = "selector"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeLock       ErrorType = "lock"
	ErrorTypeShutdown   ErrorType = "shutdown"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a type, a message, the URL or path it concerns, and the
// underlying cause.
type Error struct {
	Type    ErrorType
	Message string
	Target  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by type, so errors.Is(err, ErrShutdown) works
// for any shutdown error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Type == e.Type
}

// Sentinels for errors.Is checks against a type.
var (
	ErrTimeout  = &Error{Type: ErrorTypeTimeout}
	ErrParsing  = &Error{Type: ErrorTypeParsing}
	ErrStorage  = &Error{Type: ErrorTypeStorage}
	ErrLock     = &Error{Type: ErrorTypeLock}
	ErrShutdown = &Error{Type: ErrorTypeShutdown}
)

// New builds a typed error
func New(t ErrorType, target, message string, cause error) *Error {
	return &Error{Type: t, Target: target, Message: message, Err: cause}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNavigation, ErrorTypeTimeout, ErrorTypeSelector, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// Retryable reports whether err is worth another attempt. Shutdown, storage,
// lock and config failures never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return IsRetryable(TypeOf(err))
}
