package serrors

import (
	"errors"
	"fmt"
)

// Base is a structured error carrying a stable machine-readable code
// alongside the human message. Components wrap it with fmt.Errorf("%w: ...")
// to add call-site detail without losing the code.
type Base struct {
	Code    string
	Message string
}

func (e *Base) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message string) *Base {
	return &Base{Code: code, Message: message}
}

// CodeOf extracts the structured code from err or any error it wraps.
// Returns "" when err carries no structured code.
func CodeOf(err error) string {
	var base *Base
	if errors.As(err, &base) {
		return base.Code
	}
	var fr *FieldRequiredError
	if errors.As(err, &fr) {
		return fr.Base.Code
	}
	var it *InvalidTransitionError
	if errors.As(err, &it) {
		return it.Base.Code
	}
	return ""
}

// FieldRequiredError reports a missing required field on a caller-supplied payload.
type FieldRequiredError struct {
	Base  Base
	Field string
}

func (e *FieldRequiredError) Error() string {
	return fmt.Sprintf("%s: field %q is required", e.Base.Code, e.Field)
}

func NewFieldRequiredError(field string) *FieldRequiredError {
	return &FieldRequiredError{
		Base:  Base{Code: "DOCS_VALIDATION", Message: "required field missing"},
		Field: field,
	}
}

// InvalidTransitionError reports a state-machine precondition violation.
type InvalidTransitionError struct {
	Base      Base
	Operation string
	Current   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s is not allowed from status %q", e.Base.Code, e.Operation, e.Current)
}

func NewInvalidTransitionError(operation, current string) *InvalidTransitionError {
	return &InvalidTransitionError{
		Base:      Base{Code: "DOCS_INVALID_TRANSITION", Message: "invalid state transition"},
		Operation: operation,
		Current:   current,
	}
}
