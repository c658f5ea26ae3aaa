package errors

import (
	"errors"
	"fmt"
)

// ErrUpstream marks a failure of an external collaborator (store, upload
// service, broker). Callers report it as a generic failure and do not retry.
var ErrUpstream = errors.New("upstream service failure")

// ValidationError a rejected request, naming the offending field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Required shorthand for a missing required field
func Required(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// Invalid shorthand for a present but malformed field
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AsValidation extracts a ValidationError from err's chain
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Upstream wraps err so that errors.Is(err, ErrUpstream) holds
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
