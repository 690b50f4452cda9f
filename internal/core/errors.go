package core

import (
	"errors"
	"fmt"
)

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports input the engine refuses to act on: scores outside
// [0,100], missing identifiers, weight overflow on component creation.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

// Invalid is shorthand for a single-field validation error.
func Invalid(field, msg string) error {
	return &ValidationError{
		Err:    fmt.Errorf("%s: %s", field, msg),
		Fields: []FieldError{{Field: field, Error: msg}},
	}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

// NotFoundError is returned when a referenced component, record, assessment,
// response or question does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Resource, err.ID)
}

// SyncFailure means a graded exam percentage could not be pushed into the
// course gradebook. It is logged by the caller and never blocks grading.
type SyncFailure struct {
	AssessmentID string
	ResponseID   string
	Err          error
}

func (err *SyncFailure) Error() string {
	return fmt.Sprintf("grade sync for response %s (assessment %s): %v", err.ResponseID, err.AssessmentID, err.Err)
}

func (err *SyncFailure) Unwrap() error { return err.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsSyncFailure(err error) bool {
	var sf *SyncFailure
	return errors.As(err, &sf)
}
