package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrSSH       = "SSH"
	ErrExec      = "EXEC"
	ErrDiscovery = "DISCOVERY"
	ErrAttribute = "ATTRIBUTE"
	ErrParse     = "PARSE"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrExec code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrExec,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
// The whole chain is searched, so a wrapped EXEC failure still reports EXEC
// even when an outer layer added context with a different code.
func IsCode(err error, code string) bool {
	for err != nil {
		var gtErr *Error
		if !errors.As(err, &gtErr) {
			return false
		}
		if gtErr.Code == code {
			return true
		}
		err = gtErr.Cause
	}
	return false
}

// CodeOf returns the code of the outermost structured error in the chain,
// or the empty string if there is none.
func CodeOf(err error) string {
	var gtErr *Error
	if errors.As(err, &gtErr) {
		return gtErr.Code
	}
	return ""
}

// CodeOrDefault returns CodeOf(err), or def when err carries no code.
func CodeOrDefault(err error, def string) string {
	if code := CodeOf(err); code != "" {
		return code
	}
	return def
}

// Headline returns just the message line of a structured error, without the
// failure symbol or suggestion. Plain errors are returned as-is. Used where a
// single line fits better, like status bars.
func Headline(err error) string {
	if err == nil {
		return ""
	}
	var gtErr *Error
	if errors.As(err, &gtErr) {
		if gtErr.Cause != nil {
			return gtErr.Message + ": " + Headline(gtErr.Cause)
		}
		return gtErr.Message
	}
	return strings.TrimSpace(err.Error())
}
