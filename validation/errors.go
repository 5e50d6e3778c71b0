package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	MissingEnvelope ErrorKind = "missing_envelope"
	SchemaMismatch  ErrorKind = "schema_mismatch"
	TypeMismatch    ErrorKind = "type_mismatch"
	RangeViolation  ErrorKind = "range_violation"
)

// Error is the first violation found in a request. Message is safe to
// return to the client.
type Error struct {
	Kind    ErrorKind
	Field   string
	Missing []string
	Extra   []string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf reports the validation kind of err, if it is a validation error.
func KindOf(err error) (ErrorKind, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}

func errMissingEnvelope() *Error {
	return &Error{Kind: MissingEnvelope, Message: "Not all query params exist"}
}

func errSchemaMismatch(missing, extra []string) *Error {
	msg := "There are missing or extra model params"
	var details []string
	if len(missing) > 0 {
		details = append(details, "missing: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		details = append(details, "extra: "+strings.Join(extra, ", "))
	}
	if len(details) > 0 {
		msg += " (" + strings.Join(details, "; ") + ")"
	}
	return &Error{Kind: SchemaMismatch, Missing: missing, Extra: extra, Message: msg}
}

func errTypeMismatch(field Field) *Error {
	return &Error{
		Kind:    TypeMismatch,
		Field:   field.Name,
		Message: fmt.Sprintf("Some features in model params have wrong value type (%s should be %s)", field.Name, field.kindNames()),
	}
}

func errNegative(field string) *Error {
	return &Error{
		Kind:    RangeViolation,
		Field:   field,
		Message: fmt.Sprintf("Some numerical features in model params are negative (%s)", field),
	}
}

func errOutOfRange(field string, lo, hi int) *Error {
	return &Error{
		Kind:    RangeViolation,
		Field:   field,
		Message: fmt.Sprintf("Parameter %s should be in the range [%d..%d]", field, lo, hi),
	}
}
