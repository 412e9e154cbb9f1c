package core

import (
	"fmt"
	"sort"
	"strings"
)

// Aggregate command failures are returned synchronously to the caller and
// never become events: a stream records only facts that happened.

type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)

	return "validation failed: " + strings.Join(parts, "; ")
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient number of items in stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type UpstreamUnavailableError struct {
	Operation string
	Err       error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Operation, e.Err)
	}

	return fmt.Sprintf("%s unavailable", e.Operation)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}
