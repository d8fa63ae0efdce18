// Package dberrors defines the error taxonomy shared by every command.
package dberrors

import (
	"fmt"
	"strings"
)

// Kind classifies an error for reporting and exit-code mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindConnection    Kind = "connection"
	KindPermission    Kind = "permission"
	KindDatabase      Kind = "database"
	KindFileSystem    Kind = "file_system"
	KindUnknown       Kind = "unknown"
)

// Severity drives the icon shown to the operator and the log level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityByKind is the default severity for each kind.
var severityByKind = map[Kind]Severity{
	KindValidation:    SeverityLow,
	KindConfiguration: SeverityMedium,
	KindConnection:    SeverityHigh,
	KindPermission:    SeverityHigh,
	KindDatabase:      SeverityMedium,
	KindFileSystem:    SeverityMedium,
	KindUnknown:       SeverityMedium,
}

// Error is a classified error with operator-facing suggestions.
type Error struct {
	Kind        Kind
	Severity    Severity
	Code        string
	Message     string
	Suggestions []string
	Context     map[string]interface{}
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestions appends actionable hints shown under the error message.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithContext attaches a key/value pair carried into the structured log.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:     kind,
		Severity: severityByKind[kind],
		Message:  message,
	}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, message string) *Error {
	e := New(kind, message)
	e.Cause = err
	return e
}

// Classify inspects an arbitrary error and assigns the most likely kind.
// Driver errors rarely carry machine-readable codes across engines, so
// classification falls back to message heuristics.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if typed, ok := err.(*Error); ok {
		return typed
	}

	msg := strings.ToLower(err.Error())
	kind := KindUnknown
	switch {
	case containsAny(msg, "connection refused", "no such host", "timeout", "timed out", "server selection error", "dial tcp", "network"):
		kind = KindConnection
	case containsAny(msg, "password authentication failed", "authentication failed", "permission denied", "must be owner", "access denied", "not authorized"):
		kind = KindPermission
	case containsAny(msg, "does not exist", "already exists", "syntax error", "duplicate key", "violates", "invalid input syntax", "unknown column", "ns not found"):
		kind = KindDatabase
	case containsAny(msg, "no such file", "is a directory", "file exists", "read-only file system", "disk"):
		kind = KindFileSystem
	case containsAny(msg, "invalid", "malformed", "cannot parse", "unexpected"):
		kind = KindValidation
	}

	return Wrap(kind, err, err.Error())
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
