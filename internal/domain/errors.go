package domain

import "errors"

var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with the current state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates invalid input data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFormNotOpen indicates the form is not currently accepting responses.
	ErrFormNotOpen = errors.New("form not open")

	// ErrMissingRequired indicates a required visible question has no answer.
	ErrMissingRequired = errors.New("missing required answer")

	// ErrValidationFailed indicates the form definition failed validation.
	ErrValidationFailed = errors.New("validation failed")
)
