package domain

import (
	"errors"
	"strings"
)

const (
	KindValidation  = "validation_error"
	KindNotFound    = "not_found"
	KindConflict    = "conflict"
	KindTransaction = "transaction_error"
	KindInternal    = "internal_error"
)

var (
	ErrValidation  = errors.New(KindValidation)
	ErrNotFound    = errors.New(KindNotFound)
	ErrConflict    = errors.New(KindConflict)
	ErrTransaction = errors.New(KindTransaction)
)

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Code: code, Message: message}}}
}

func (e *ValidationError) Add(field, code, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: message})
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return KindValidation
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation_error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// HasField reports whether field is among the collected errors.
func (e *ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Field   string
	Message string
}

func NewConflict(field, message string) *ConflictError {
	return &ConflictError{Field: field, Message: message}
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransactionError wraps a store failure. Nothing from the failed operation
// was applied. Retryable marks serialization failures and deadlocks, which
// the caller may resubmit unchanged.
type TransactionError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *TransactionError) Error() string {
	return "transaction_error: " + e.Op + ": " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

// Kind returns the stable machine-readable kind of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrTransaction):
		return KindTransaction
	default:
		return KindInternal
	}
}
