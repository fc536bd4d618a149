package fieldmap

import (
	"errors"
	"fmt"
)

// ValidationError reports a client payload that cannot be mapped. It is
// always a client error and never retried.
type ValidationError struct {
	Field  string // offending field, empty for payload-level errors
	Value  string // offending literal, if any
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "":
		return e.Reason
	case e.Value == "":
		return fmt.Sprintf("field %q %s", e.Field, e.Reason)
	default:
		return fmt.Sprintf("field %q: invalid value %q: %s", e.Field, e.Value, e.Reason)
	}
}

// ErrNoFields is returned when a payload contains no recognized field.
var ErrNoFields = &ValidationError{Reason: "no fields provided"}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(spec FieldSpec, raw any, reason string) *ValidationError {
	return &ValidationError{Field: spec.Name, Value: literal(raw), Reason: reason}
}

func literal(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "null"
	case string:
		return v
	case map[string]any:
		return "{...}"
	case []any:
		return "[...]"
	default:
		return fmt.Sprint(v)
	}
}
