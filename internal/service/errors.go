package service

import (
	"errors"
	"fmt"

	"inventrack/internal/audit"

	"gorm.io/gorm"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorage           = errors.New("storage failure")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

// ValidationError carries one message per offending request field
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Fields)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientStockError is returned when a movement or reversal would take
// stock below zero. Available is the stock at the time of the check.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available stock: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a driver error. The whole unit of work was rolled back
// and can be retried as is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// storageErr classifies an error coming out of a repository or a
// db.Transaction callback. Typed service errors pass through untouched.
func storageErr(op string, err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientStock) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity}
	}
	if errors.Is(err, audit.ErrIncompleteEntry) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &StorageError{Op: op, Err: err}
}
