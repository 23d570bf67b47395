// Package apperr defines the engine-wide error taxonomy: every public entry
// point in internal/domain returns either a verdict sequence or one of the
// kinds this package names, following the CrossFileValidationError pattern
// of a typed struct implementing error, wrapped with fmt.Errorf at call
// boundaries.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a run's context is cancelled mid-stream.
var ErrCancelled = errors.New("reconciliation cancelled")

// ConfigInvalid reports a rejected batch: missing required parameter, unknown
// step kind, a cycle in virtual fields, an absent sort key, or an empty
// mapping list (spec.md §7 "Configuration errors").
type ConfigInvalid struct {
	Reason string
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// NewConfigInvalid wraps reason as a *ConfigInvalid.
func NewConfigInvalid(reason string) error {
	return &ConfigInvalid{Reason: reason}
}

// PreprocessFailed reports a row that could not be carried through
// preprocessing at all (distinct from a recoverable per-cell step error,
// which is attached to the row's StepResult instead).
type PreprocessFailed struct {
	RowIndex int
	StepID   string
	Kind     string
}

func (e *PreprocessFailed) Error() string {
	return fmt.Sprintf("preprocess failed at row %d, step %s: %s", e.RowIndex, e.StepID, e.Kind)
}

// Unsupported reports a requested feature this build does not implement.
type Unsupported struct {
	Feature string
}

func (e *Unsupported) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.Feature)
}

// NewUnsupported wraps feature as an *Unsupported.
func NewUnsupported(feature string) error {
	return &Unsupported{Feature: feature}
}
