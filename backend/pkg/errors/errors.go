package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents derived graph and query errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeStore represents entity store and persistence errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeProvider represents language-model / embedding provider errors
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeMirror represents Neo4j mirror errors
	ErrorTypeMirror ErrorType = "mirror"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrEntityNotFound is returned by path finding, related-entity lookup and
// relationship listing when an endpoint node does not exist.
type ErrEntityNotFound struct {
	*BaseError
	Kind string
	ID   string
}

func NewEntityNotFound(kind, id string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("entity %s with ID %s not found", kind, id), nil),
		Kind:      kind,
		ID:        id,
	}
}

// ErrUnknownKind is returned when an entity kind string cannot be parsed
type ErrUnknownKind struct {
	*BaseError
	Value string
}

func NewUnknownKind(value string) *ErrUnknownKind {
	return &ErrUnknownKind{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("unknown entity kind: %q", value), nil),
		Value:     value,
	}
}

// Store Errors

// ErrPersistFailed is returned when the data document cannot be written
type ErrPersistFailed struct {
	*BaseError
	Path string
}

func NewPersistFailed(path string, err error) *ErrPersistFailed {
	return &ErrPersistFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to save data to %s", path), err),
		Path:      path,
	}
}

// ErrInvalidRecord is returned when a record cannot be added to the store
type ErrInvalidRecord struct {
	*BaseError
	Kind   string
	Reason string
}

func NewInvalidRecord(kind, reason string) *ErrInvalidRecord {
	return &ErrInvalidRecord{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("invalid %s record: %s", kind, reason), nil),
		Kind:      kind,
		Reason:    reason,
	}
}

// Provider Errors

// ErrProviderFailed is returned when a language-model request fails
type ErrProviderFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewProviderFailed(model string, attempts int, retryable bool, err error) *ErrProviderFailed {
	return &ErrProviderFailed{
		BaseError: NewBaseError(ErrorTypeProvider, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrProviderNoResponse is returned when the LLM returns no choices
var ErrProviderNoResponse = NewBaseError(ErrorTypeProvider, "no response from LLM", nil)

// Mirror Errors

// ErrMirrorConnectionFailed is returned when the Neo4j connection fails
type ErrMirrorConnectionFailed struct {
	*BaseError
	URI string
}

func NewMirrorConnectionFailed(uri string, err error) *ErrMirrorConnectionFailed {
	return &ErrMirrorConnectionFailed{
		BaseError: NewBaseError(ErrorTypeMirror, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrMirrorQueryFailed is returned when a mirror write fails
type ErrMirrorQueryFailed struct {
	*BaseError
	Query string
}

func NewMirrorQueryFailed(query string, err error) *ErrMirrorQueryFailed {
	return &ErrMirrorQueryFailed{
		BaseError: NewBaseError(ErrorTypeMirror, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsEntityNotFound reports whether err (or anything it wraps) is an ErrEntityNotFound
func IsEntityNotFound(err error) bool {
	var nf *ErrEntityNotFound
	return stderrors.As(err, &nf)
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Typed errors embed *BaseError
	if typed, ok := err.(interface{ base() *BaseError }); ok {
		return typed.base().Type == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

func (e *BaseError) base() *BaseError { return e }

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var providerErr *ErrProviderFailed
	if stderrors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	// Mirror connection errors are retryable
	var connErr *ErrMirrorConnectionFailed
	return stderrors.As(err, &connErr)
}
