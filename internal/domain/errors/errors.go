// Package errors defines domain-specific error types.
// Using typed errors (instead of strings) allows clients to handle specific cases.
//
// Pattern: Sentinel Errors + Custom Error Types
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors for domain validation
var (
	// Entity errors
	ErrInvalidEntityID     = errors.New("invalid entity ID")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")

	// Unit of Work errors
	ErrScopeClosed        = errors.New("transaction scope is already closed")
	ErrUnitOfWorkFinished = errors.New("unit of work is already finished")
	// ErrRollbackOnly - вложенный Execute завершился ошибкой, транзакцию можно только откатить
	ErrRollbackOnly = errors.New("transaction is marked rollback-only")
)

// DatabaseError оборачивает сбой хранилища (connectivity, constraint violation, timeout).
// Никогда не превращается в ErrEntityNotFound.
type DatabaseError struct {
	Op         string // Операция провайдера (e.g., "product.add")
	Code       string // SQLSTATE, если есть
	Constraint string // Имя нарушенного constraint, если есть
	Err        error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("database error in %s (constraint %s): %v", e.Op, e.Constraint, e.Err)
	}
	return fmt.Sprintf("database error in %s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError creates a new database error.
func NewDatabaseError(op string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Err: err}
}

// InvalidStateError signals a programmer contract violation,
// e.g. reading the value of a failed result or using a provider after its unit of work ended.
type InvalidStateError struct {
	Op  string
	Msg string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state in %s: %s", e.Op, e.Msg)
}

// NewInvalidStateError creates a new invalid state error.
func NewInvalidStateError(op, msg string) *InvalidStateError {
	return &InvalidStateError{Op: op, Msg: msg}
}

// ValidationError represents validation failures with field-level details.
//
// Pattern: Composite Error for Multiple Validations
type ValidationError struct {
	Field   string // Field name that failed validation
	Rule    string // Rule (tag) that failed
	Message string // Localized phrase
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(e))
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, rule, message string) {
	*e = append(*e, ValidationError{Field: field, Rule: rule, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// HasField reports whether the field already failed a rule.
func (e ValidationErrors) HasField(field string) bool {
	for _, v := range e {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Helper functions for common error checking

// IsNotFound checks if an error is an "entity not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var valErr ValidationError
	var valErrs ValidationErrors
	return errors.As(err, &valErr) || errors.As(err, &valErrs)
}

// IsDatabaseError checks if an error is a persistence fault.
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

// IsInvalidState checks if an error is a contract violation.
func IsInvalidState(err error) bool {
	var isErr *InvalidStateError
	return errors.As(err, &isErr)
}

// IsUniqueViolation проверяет, что сбой хранилища вызван нарушением уникальности.
func IsUniqueViolation(err error) bool {
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		return false
	}
	return dbErr.Code == "23505" || errors.Is(dbErr.Err, ErrEntityAlreadyExists)
}
