package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrSchemaViolation is returned when a record does not satisfy the
// storage schema.
var ErrSchemaViolation = errors.New("inquiry violates storage schema")

type PersistenceKind string

const (
	SchemaViolation PersistenceKind = "schema_violation"
	Unavailable     PersistenceKind = "unavailable"
)

// PersistenceError wraps every failure coming out of a Repository.
type PersistenceError struct {
	Kind PersistenceKind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a storage outage rather than a
// rejected record.
func IsUnavailable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == Unavailable
}

func IsSchemaViolation(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == SchemaViolation
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}

	kind := Unavailable
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = Unavailable
	case errors.Is(err, ErrSchemaViolation),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidField):
		kind = SchemaViolation
	}
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}
