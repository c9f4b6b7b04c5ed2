package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors, use with errors.Is().
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("record not found")
	ErrBusinessRule        = errors.New("business rule violated")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	msg := e.Message
	if msg == "" {
		msg = ErrValidation.Error()
	}
	return msg + " (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NewFieldValidationError(field string, message string) *ValidationError {
	return &ValidationError{Message: ErrValidation.Error(), Fields: map[string]string{field: message}}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	Id     any
}

func (e *NotFoundError) Error() string {
	if e.Id == nil {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.Id)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, Id: id}
}

// BusinessRuleError is a well-formed request refused by a domain rule.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

func (e *BusinessRuleError) Unwrap() error { return ErrBusinessRule }

func NewBusinessRuleError(format string, args ...any) *BusinessRuleError {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

// ConcurrencyConflictError is a lost race: unique key, stale version or a lock timeout.
type ConcurrencyConflictError struct {
	Resource string
	Cause    error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("concurrent modification of %s: %v", e.Resource, e.Cause)
	}
	return "concurrent modification of " + e.Resource
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

func NewConcurrencyConflictError(resource string, cause error) *ConcurrencyConflictError {
	return &ConcurrencyConflictError{Resource: resource, Cause: cause}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsClientError returns true if the error is due to the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrBusinessRule)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// TranslateDBError maps gorm errors onto the domain taxonomy.
// Requires gorm.Config.TranslateError for the duplicate key case.
func TranslateDBError(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewConcurrencyConflictError(entity, err)
	default:
		return err
	}
}
