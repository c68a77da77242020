package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeValidation indicates a report field violated its constraint.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeIO indicates a file could not be opened or fully read.
	ErrCodeIO ErrorCode = "IO"
	// ErrCodeAlreadyRegistered indicates the crash handler is already installed.
	ErrCodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"
	// ErrCodeRegistrationFailed indicates the host refused to install the handler.
	ErrCodeRegistrationFailed ErrorCode = "REGISTRATION_FAILED"
	// ErrCodeSubmissionInProgress indicates a submission was dropped because
	// another one is still outstanding.
	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"
	// ErrCodeTransport indicates the collector could not be reached or rejected the report.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeTimeout indicates an operation exceeded its time limit.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConfig indicates configuration could not be read or parsed.
	ErrCodeConfig ErrorCode = "CONFIG"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// IsCode reports whether any error in err's chain is a StructuredError with code.
func IsCode(err error, code ErrorCode) bool {
	var se *StructuredError
	for err != nil {
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}
