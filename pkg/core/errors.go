package core

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrConfigurationMismatch = errors.New("configuration mismatch")
	ErrExternalRoutine       = errors.New("external routine failure")
)

// InvalidInputError is returned when input data fails validation before any
// computation starts.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input in %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInput is a shorthand for &InvalidInputError{...} with a formatted message.
func NewInvalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// EmptySpectrumError reports a spectrum without peaks or without intensity.
// It is a kind of invalid input.
type EmptySpectrumError struct {
	Reason string
}

func (e *EmptySpectrumError) Error() string {
	return "empty spectrum: " + e.Reason
}

func (e *EmptySpectrumError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigurationMismatchError is returned when a parameter variant is bound to
// an algorithm that expects a different one.
type ConfigurationMismatchError struct {
	Algorithm  string
	Parameters string
}

func (e *ConfigurationMismatchError) Error() string {
	return fmt.Sprintf("deconvolution parameters %s do not match algorithm %s", e.Parameters, e.Algorithm)
}

func (e *ConfigurationMismatchError) Is(target error) bool {
	return target == ErrConfigurationMismatch
}

// ExternalRoutineError wraps a failure raised by an external clustering routine.
type ExternalRoutineError struct {
	Op  string
	Err error
}

func (e *ExternalRoutineError) Error() string {
	if e.Err == nil {
		return "external routine " + e.Op + " failed"
	}
	return fmt.Sprintf("external routine %s failed: %v", e.Op, e.Err)
}

func (e *ExternalRoutineError) Unwrap() error {
	return e.Err
}

func (e *ExternalRoutineError) Is(target error) bool {
	return target == ErrExternalRoutine
}
