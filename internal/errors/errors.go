// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidHorizon   = errors.New("invalid horizon")
	ErrInvalidCandles   = errors.New("invalid candle sequence")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
	ErrInputValidation  = errors.New("input validation failed")
	ErrInconsistent     = errors.New("internal consistency violated")
)

// PreconditionError identifies the input precondition a caller failed to meet.
// Index is the offending bar position, or -1 when the whole input is at fault.
type PreconditionError struct {
	Field  string
	Index  int
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("precondition failed: %s at index %d: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match any precondition failure with ErrInvalidCandles.
func (e *PreconditionError) Unwrap() error {
	return ErrInvalidCandles
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(field string, index int, reason string) *PreconditionError {
	return &PreconditionError{
		Field:  field,
		Index:  index,
		Reason: reason,
	}
}

// ConsistencyError is fatal: a component reached a state its invariants forbid.
type ConsistencyError struct {
	Component string
	Reason    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error [%s]: %s", e.Component, e.Reason)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistent
}

// NewConsistencyError creates a new ConsistencyError.
func NewConsistencyError(component, reason string) *ConsistencyError {
	return &ConsistencyError{
		Component: component,
		Reason:    reason,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
