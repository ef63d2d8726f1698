package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gantt-tracker/internal/graph"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrForbidden  = errors.New("forbidden")
	ErrNoProject  = errors.New("no project selected")

	// ErrInvalidEdge and ErrCycle come from the dependency graph so callers
	// can match them without importing it.
	ErrInvalidEdge = graph.ErrInvalidEdge
	ErrCycle       = graph.ErrCycle
)

// ValidationError reports a bad or missing field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// notFound translates gorm's missing-row error; other errors pass through.
func notFound(err error, kind string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}
