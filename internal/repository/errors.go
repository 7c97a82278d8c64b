package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConflictError is returned when a write violates a uniqueness or reference constraint
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

func (e *ConflictError) IsTransient() bool {
	return false
}

// Postgres SQLSTATE codes we translate
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// conflictFrom maps constraint violations to ConflictError and returns nil for anything else
func conflictFrom(resource string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return &ConflictError{Resource: resource, Message: "already exists"}
	case pqForeignKeyViolation:
		return &ConflictError{Resource: resource, Message: "is still referenced by other records"}
	default:
		return nil
	}
}
