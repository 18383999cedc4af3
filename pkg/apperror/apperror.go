package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for handling policy: config and validation
// errors are caller mistakes, network and data errors are source failures
// that degrade a snapshot for one cycle.
type Kind string

const (
	KindConfig     Kind = "config"
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindData       Kind = "data"
)

// Error is the application error crossing package boundaries.
type Error struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithError wraps an underlying error.
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

// Config creates a configuration error. Fatal at startup.
func Config(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// ConfigErr wraps an underlying error as a configuration error.
func ConfigErr(err error) *Error {
	return &Error{Kind: KindConfig, Err: err}
}

// Validation creates a validation error for the given source.
func Validation(source, message string) *Error {
	return &Error{Kind: KindValidation, Source: source, Message: message}
}

// Validationf creates a validation error with formatting.
func Validationf(source, format string, a ...interface{}) *Error {
	return Validation(source, fmt.Sprintf(format, a...))
}

// Network creates a network error for the given source.
func Network(source, message string) *Error {
	return &Error{Kind: KindNetwork, Source: source, Message: message}
}

// Data creates a data error for the given source.
func Data(source, message string) *Error {
	return &Error{Kind: KindData, Source: source, Message: message}
}

// KindOf extracts the kind from an error chain. Returns false when the
// chain carries no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether the error chain carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// SourceOf extracts the source label from an error chain, empty if none.
func SourceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Source
	}
	return ""
}
