// Package errs defines the typed errors shared by the lunch ordering domain.
//
// Every core operation returns either a result or exactly one of these errors
// (possibly several of them combined with multierr for collected line-item
// failures). Callers classify them with errors.As.
package errs

import "fmt"

// ValidationError reports bad input shape or value.
type ValidationError struct {
	Field   string
	Message string
}

// Validation returns a ValidationError for the given field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LineItemError reports a product or price resolution failure for one line.
type LineItemError struct {
	ProductID string
	Message   string
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Message)
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

// NotFound returns a NotFoundError for the given entity kind and identifier.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StateTransitionError reports an operation that is invalid for the current
// order status.
type StateTransitionError struct {
	Action string
	Status string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s order", e.Action, e.Status)
}

// ConflictError reports a concurrent modification detected when persisting.
type ConflictError struct {
	Entity  string
	ID      string
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently (expected version %d)", e.Entity, e.ID, e.Version)
}
