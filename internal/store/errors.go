package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique or foreign key
// constraint.
var ErrConflict = errors.New("conflict")

// NotFoundError names the missing record. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound returns a *NotFoundError for entity/id.
func NotFound(entity string, id int) error {
	return &NotFoundError{Entity: entity, ID: id}
}

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		}
	}
	return err
}
