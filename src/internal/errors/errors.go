// Package errors provides domain-specific error types for mhroute.
//
// Errors carry a code so callers can tell a fatal enumeration failure from a
// per-interface bind failure without matching on message text.
package errors

import "fmt"

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeEnumeration indicates the host interface list could not be read.
	ErrCodeEnumeration ErrorCode = "ENUMERATION_ERROR"

	// ErrCodeSelection indicates no local interface matched a destination or policy.
	ErrCodeSelection ErrorCode = "SELECTION_ERROR"

	// ErrCodeBind indicates a UDP endpoint could not be opened.
	ErrCodeBind ErrorCode = "BIND_ERROR"

	// ErrCodeSend indicates a datagram could not be transmitted.
	ErrCodeSend ErrorCode = "SEND_ERROR"

	// ErrCodeRouting indicates a policy routing table could not be installed.
	ErrCodeRouting ErrorCode = "ROUTING_ERROR"

	// ErrCodeConfig indicates a configuration-related error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeValidation indicates a validation error.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code. A target with a
// message only matches errors carrying that same message, so sentinels of one
// code stay distinguishable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewEnumerationError creates a new interface enumeration error.
func NewEnumerationError(message string, cause error) *Error {
	return Wrap(ErrCodeEnumeration, message, cause)
}

// NewSelectionError creates a new interface selection error.
func NewSelectionError(message string, cause error) *Error {
	return Wrap(ErrCodeSelection, message, cause)
}

// NewBindError creates a new endpoint bind error.
func NewBindError(message string, cause error) *Error {
	return Wrap(ErrCodeBind, message, cause)
}

// NewSendError creates a new datagram send error.
func NewSendError(message string, cause error) *Error {
	return Wrap(ErrCodeSend, message, cause)
}

// NewRoutingError creates a new policy routing error.
func NewRoutingError(message string, cause error) *Error {
	return Wrap(ErrCodeRouting, message, cause)
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return Wrap(ErrCodeValidation, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}
