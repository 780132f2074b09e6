package etl

import (
	"encoding/json"
	"math"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
)

// ── Validate ───────────────────────────────────────────────
// Checks every record against a Schema, field by field in schema order,
// and stops at the first violation. Types are strict: a numeric string is
// never accepted where a number is declared.

var formatValidator = validator.New()

// Validate returns a normalized copy of b that satisfies s, or the first
// *ValidationError found. Values in the copy use canonical Go types
// (int64, float64, string, civil.Date, nil); optional fields absent from a
// record are present as nil. b itself is not modified.
func Validate(b *Batch, s *Schema) (*Batch, error) {
	out := &Batch{Columns: validatedColumns(b, s)}
	if b == nil {
		return out, nil
	}
	out.Records = make([]Record, 0, len(b.Records))
	for i, rec := range b.Records {
		norm, err := validateRecord(i, rec, s)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, norm)
	}
	return out, nil
}

func validateRecord(idx int, rec Record, s *Schema) (Record, error) {
	data := make(map[string]any, len(rec.Data))
	for _, f := range s.Fields {
		v, present := rec.Data[f.Name]
		if !present {
			if f.Required {
				return Record{}, violation(s, idx, f, CodeMissingField, nil, "")
			}
			data[f.Name] = nil
			continue
		}
		if v == nil {
			if !f.Nullable {
				return Record{}, violation(s, idx, f, CodeNullValue, nil, "")
			}
			data[f.Name] = nil
			continue
		}
		cv, ok := coerce(f.Type, v)
		if !ok {
			return Record{}, violation(s, idx, f, CodeTypeMismatch, v, "")
		}
		if reason := checkFormat(f.Format, cv); reason != "" {
			return Record{}, violation(s, idx, f, CodeFormatMismatch, v, reason)
		}
		data[f.Name] = cv
	}

	for _, k := range sortedKeys(rec.Data) {
		if _, declared := s.Lookup(k); declared {
			continue
		}
		if s.Closed {
			return Record{}, &ValidationError{
				Schema:   s.Name,
				Record:   idx,
				Field:    k,
				Code:     CodeUnexpectedField,
				Expected: "no undeclared fields",
				Value:    rec.Data[k],
			}
		}
		data[k] = rec.Data[k]
	}
	return Record{Data: data}, nil
}

func violation(s *Schema, idx int, f Field, code ViolationCode, v any, reason string) *ValidationError {
	return &ValidationError{
		Schema:   s.Name,
		Record:   idx,
		Field:    f.Name,
		Code:     code,
		Expected: expectation(f),
		Value:    v,
		Reason:   reason,
	}
}

func expectation(f Field) string {
	exp := string(f.Type)
	if f.Format != FormatNone {
		exp += " (" + string(f.Format) + ")"
	}
	if f.Nullable {
		exp += " or null"
	}
	return exp
}

// coerce converts v to the canonical Go type for t without crossing kinds.
func coerce(t FieldType, v any) (any, bool) {
	switch t {
	case TypeInteger:
		return strictInteger(v)
	case TypeFloat:
		return strictFloat(v)
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeDate:
		switch d := v.(type) {
		case civil.Date:
			return d, d.IsValid()
		case *civil.Date:
			if d == nil {
				return nil, false
			}
			return *d, d.IsValid()
		}
		return nil, false
	default:
		return nil, false
	}
}

func strictInteger(v any) (any, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return nil, false
		}
		return int64(n), true
	default:
		// strings, floats and bools are never integers
		return nil, false
	}
}

func strictFloat(v any) (any, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return nil, false
	}
}

// checkFormat returns why v breaks f, or "" when it conforms.
// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	return formatValidator.Var(s, "required,http_url") == nil
}

func checkFormat(f Format, v any) string {
	switch f {
	case FormatURL:
		if s, _ := v.(string); !IsHTTPURL(s) {
			return "not an absolute http(s) URL"
		}
	}
	return ""
}

// validatedColumns is the schema order followed, for open schemas, by any
// other input columns in their input order.
func validatedColumns(b *Batch, s *Schema) []string {
	cols := s.FieldNames()
	if s.Closed || b == nil {
		return cols
	}
	for _, c := range b.Columns {
		if _, declared := s.Lookup(c); !declared {
			cols = append(cols, c)
		}
	}
	return cols
}
