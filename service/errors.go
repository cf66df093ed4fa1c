package service

import (
	"errors"
	"fmt"
)

type ValidationKind string

const (
	MissingField      ValidationKind = "missing_field"
	InvalidEmail      ValidationKind = "invalid_email"
	InvalidPhone      ValidationKind = "invalid_phone"
	InvalidGradeLevel ValidationKind = "invalid_grade_level"
	InvalidProject    ValidationKind = "invalid_project"
)

// ValidationError rejects a submission before anything is written.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Field)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
