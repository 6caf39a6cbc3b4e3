package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryRegistry   Category = "registry"
	CategoryRemote     Category = "remote"
	CategoryDatabase   Category = "database"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// RegistryError is a structured error with a code, suggestions, and documentation.
type RegistryError struct {
	// Code is a unique error identifier (e.g., "E012").
	Code string

	// Category is the error type (registry, database, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Resource names the component, file or row the error is about.
	Resource string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Status is the HTTP status reported for this error.
	Status int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	msg := e.Message
	if e.Resource != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Resource)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RegistryError) Unwrap() error {
	return e.Wrapped
}

// Is matches another RegistryError with the same code, so
// errors.Is(err, errors.New("E012")) works.
func (e *RegistryError) Is(target error) bool {
	t, ok := target.(*RegistryError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithResource records what the error is about.
func (e *RegistryError) WithResource(r string) *RegistryError {
	e.Resource = r
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *RegistryError) WithSuggestion(s string) *RegistryError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *RegistryError) WithDetail(d string) *RegistryError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with a format string.
func (e *RegistryError) WithDetailf(format string, args ...any) *RegistryError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *RegistryError) Wrap(err error) *RegistryError {
	e.Wrapped = err
	return e
}

// New creates a RegistryError from a registered error code.
func New(code string) *RegistryError {
	template, ok := registry[code]
	if !ok {
		return &RegistryError{
			Code:    code,
			Message: "Unknown error",
			Status:  http.StatusInternalServerError,
		}
	}
	return &RegistryError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
		Status:   template.Status,
	}
}

// Newf creates a new RegistryError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *RegistryError {
	return &RegistryError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a RegistryError.
func FromError(err error, code string) *RegistryError {
	if err == nil {
		return nil
	}
	var re *RegistryError
	if stderrors.As(err, &re) {
		return re
	}
	return New(code).Wrap(err)
}

// As finds the first RegistryError in err's chain.
func As(err error) (*RegistryError, bool) {
	var re *RegistryError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// CodeOf returns the code of the first RegistryError in err's chain.
func CodeOf(err error) string {
	if re, ok := As(err); ok {
		return re.Code
	}
	return ""
}

// HTTPStatus maps err to an HTTP status code. Errors without a
// registered status are 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if re, ok := As(err); ok && re.Status != 0 {
		return re.Status
	}
	return http.StatusInternalServerError
}
