package routes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("route not found")
)

// FieldError describes one rejected field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError is returned for malformed local input. It never involves
// the network.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("invalid route: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// NotFoundError is returned when no entry exists for a (path, method) pair.
// PathKnown tells whether the path had other methods registered; it is
// carried for logging only.
type NotFoundError struct {
	Path      string
	Method    string
	PathKnown bool
}

func (e *NotFoundError) Error() string {
	if e.PathKnown {
		return fmt.Sprintf("could not find a response for %s %s: method not registered for path", e.Method, e.Path)
	}
	return fmt.Sprintf("could not find a response for %s %s: unknown path", e.Method, e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
