package etl

import (
	"fmt"

	"jobfeed/internal/errors"
)

// ── Errors ─────────────────────────────────────────────────
// Four failure kinds, all fatal to a run. Stages return them directly;
// the Engine wraps them with the failing stage name.

// ViolationCode identifies which constraint a value broke.
type ViolationCode string

const (
	// CodeMissingField indicates a required field is absent from a record.
	CodeMissingField ViolationCode = "missing-field"
	// CodeNullValue indicates a non-nullable field holds null.
	CodeNullValue ViolationCode = "null-value"
	// CodeTypeMismatch indicates a value is not of the declared type.
	CodeTypeMismatch ViolationCode = "type-mismatch"
	// CodeFormatMismatch indicates a value violates the field's format rule.
	CodeFormatMismatch ViolationCode = "format-mismatch"
	// CodeUnexpectedField indicates a closed schema received an undeclared field.
	CodeUnexpectedField ViolationCode = "unexpected-field"
	// CodeInvalidDate indicates a date string is not ISO-8601 (YYYY-MM-DD).
	CodeInvalidDate ViolationCode = "invalid-date"
	// CodeMalformedBody indicates the response body is not a JSON array of objects.
	CodeMalformedBody ViolationCode = "malformed-body"
)

// TransportError reports a failed fetch: either a non-2xx status or a
// request that never produced a response (StatusCode 0, Err set).
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		status := e.Status
		if status == "" {
			status = fmt.Sprintf("%d", e.StatusCode)
		}
		return fmt.Sprintf("transport: GET %s returned %s", e.URL, status)
	}
	return fmt.Sprintf("transport: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports the first record/field that failed a schema or
// coercion check. Record is -1 when the failure is not tied to one record.
type ValidationError struct {
	Schema   string
	Record   int
	Field    string
	Code     ViolationCode
	Expected string
	Value    any
	Reason   string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation: schema %q", e.Schema)
	if e.Record >= 0 {
		msg += fmt.Sprintf(": record %d", e.Record)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	msg += fmt.Sprintf(": %s", e.Code)
	if e.Expected != "" {
		msg += fmt.Sprintf(": expected %s", e.Expected)
	}
	if e.Code != CodeMissingField && e.Code != CodeMalformedBody {
		msg += fmt.Sprintf(", got %s", describeValue(e.Value))
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(" (%s)", e.Reason)
	}
	return msg
}

// MappingError reports a rename whose source field is absent, which is how
// a batch that was already transformed gets caught.
type MappingError struct {
	Record int
	Field  string
	To     string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping: record %d: source field %q (renamed to %q) not found", e.Record, e.Field, e.To)
}

// PersistenceError reports a failed write. The whole batch was rolled back.
// Record is -1 for failures outside a single insert (begin, commit).
type PersistenceError struct {
	Table  string
	Op     string
	Record int
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("persistence: %s record %d into %s: %v", e.Op, e.Record, e.Table, e.Err)
	}
	return fmt.Sprintf("persistence: %s on %s: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind names the failure kind of err: "transport", "validation", "mapping",
// "persistence", or "" for anything else.
func Kind(err error) string {
	var (
		te *TransportError
		ve *ValidationError
		me *MappingError
		pe *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &me):
		return "mapping"
	case errors.As(err, &pe):
		return "persistence"
	default:
		return ""
	}
}

func describeValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("string %q", val)
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}
