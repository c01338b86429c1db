/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common sentinel errors, one per error kind.
var (
	// ErrNotFound is returned when an operation requires an existing item and none was found
	ErrNotFound = errors.New("item not found")

	// ErrConditionalCheckFailed is returned when a condition expression evaluates false
	ErrConditionalCheckFailed = errors.New("conditional check failed")

	// ErrValidationFailed is returned when an item or key does not match the table schema
	ErrValidationFailed = errors.New("validation failed")

	// ErrTableNotFound is returned when the table does not exist in the backend
	ErrTableNotFound = errors.New("table not found")

	// ErrTransactionCancelled is returned when any member of a transaction fails its condition
	ErrTransactionCancelled = errors.New("transaction cancelled")

	// ErrUnknown wraps any unrecognized backend failure
	ErrUnknown = errors.New("unknown error")
)

// Machine-stable error codes.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeConditionalCheckFailed = "CONDITIONAL_CHECK_FAILED"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeTableNotFound          = "TABLE_NOT_FOUND"
	CodeTransactionCancelled   = "TRANSACTION_CANCELLED"
	CodeUnknown                = "UNKNOWN"
)

// NotFoundError represents an error when an item is not found
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item with key %s not found in table %q", e.Key, e.Table)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("condition check failed for %s operation", e.Operation)
	}
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionalCheckFailed
}

// ValidationError represents an item or key validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// TableNotFoundError is returned when the backing table is missing
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.Table)
}

func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrTableNotFound
}

// TransactionCancelledError reports a cancelled transaction. Reasons holds one
// code per operation in request order ("None" for operations that passed).
type TransactionCancelledError struct {
	Reasons []string
}

func (e *TransactionCancelledError) Error() string {
	if len(e.Reasons) == 0 {
		return "transaction cancelled"
	}
	return fmt.Sprintf("transaction cancelled, reasons [%s]", strings.Join(e.Reasons, ", "))
}

func (e *TransactionCancelledError) Is(target error) bool {
	return target == ErrTransactionCancelled
}

// UnknownError wraps an unrecognized backend failure and keeps its message.
type UnknownError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *UnknownError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("unknown error: %s", e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *UnknownError) Is(target error) bool {
	return target == ErrUnknown
}

func (e *UnknownError) Unwrap() error {
	return e.Cause
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table, key string) error {
	return &NotFoundError{Table: table, Key: key}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewTableNotFoundError creates a new TableNotFoundError
func NewTableNotFoundError(table string) error {
	return &TableNotFoundError{Table: table}
}

// NewTransactionCancelledError creates a new TransactionCancelledError
func NewTransactionCancelledError(reasons []string) error {
	return &TransactionCancelledError{Reasons: reasons}
}

// NewUnknownError wraps cause. The message of cause is kept for diagnostics.
func NewUnknownError(operation string, cause error) error {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return &UnknownError{Operation: operation, Message: msg, Cause: cause}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConditionFailed checks if an error is a conditional check failure
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionalCheckFailed)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsTableNotFound checks if an error is a table not found error
func IsTableNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound)
}

// IsTransactionCancelled checks if an error is a cancelled transaction
func IsTransactionCancelled(err error) bool {
	return errors.Is(err, ErrTransactionCancelled)
}

// IsUnknown checks if an error is a wrapped unknown backend failure
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknown)
}

// Code returns the machine-stable code for err. Errors outside the taxonomy
// report CodeUnknown; a nil error reports "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return CodeNotFound
	case IsConditionFailed(err):
		return CodeConditionalCheckFailed
	case IsValidationError(err):
		return CodeValidationFailed
	case IsTableNotFound(err):
		return CodeTableNotFound
	case IsTransactionCancelled(err):
		return CodeTransactionCancelled
	default:
		return CodeUnknown
	}
}

// StatusCode returns the suggested HTTP status classification for err.
func StatusCode(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case CodeNotFound, CodeTableNotFound:
		return http.StatusNotFound
	case CodeConditionalCheckFailed, CodeTransactionCancelled:
		return http.StatusBadRequest
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
