package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures by how the archive run reacts to them
type ErrorType string

const (
	ErrorTypeTransientFetch ErrorType = "transient_fetch"
	ErrorTypeExtractionMiss ErrorType = "extraction_miss"
	ErrorTypeIntegrity      ErrorType = "integrity"
	ErrorTypeInvalidTarget  ErrorType = "invalid_target"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeBrowser        ErrorType = "browser"
	ErrorTypeFilesystem     ErrorType = "filesystem"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error is an archive error with type information
type Error struct {
	Type    ErrorType
	Message string
	// Code is the HTTP status for transient fetch failures, 0 otherwise
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, &Error{Type: ErrorTypeAuth}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap attaches a type and message to an underlying error
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

func NewTransientFetch(url string, code int, err error) *Error {
	return &Error{Type: ErrorTypeTransientFetch, Message: "fetch " + url, Code: code, Err: err}
}

func NewExtractionMiss(what string) *Error {
	return &Error{Type: ErrorTypeExtractionMiss, Message: what + " not found in cache or page"}
}

func NewIntegrity(requested, resolved string) *Error {
	return &Error{
		Type:    ErrorTypeIntegrity,
		Message: fmt.Sprintf("resolved record code %q does not match requested %q", resolved, requested),
	}
}

func NewInvalidTarget(ref string, reason string) *Error {
	return &Error{Type: ErrorTypeInvalidTarget, Message: fmt.Sprintf("%q: %s", ref, reason)}
}

func NewAuth(message string) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message}
}

// TypeOf returns the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsFatal reports whether an error must end the whole run.
// Everything else is skip-and-continue at the smallest granularity.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeBrowser:
		return true
	default:
		return false
	}
}
