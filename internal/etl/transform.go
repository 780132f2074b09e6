package etl

import (
	"cloud.google.com/go/civil"
)

// ── Transformer ────────────────────────────────────────────
// Record transformers are applied step by step across the whole batch:
// every record goes through step 1 before any record enters step 2.
// The first failing record stops the chain.

// Transformer converts a batch into a new batch.
type Transformer interface {
	Transform(*Batch) (*Batch, error)
}

// RecordTransformer converts a single record. idx is the record's position
// in the batch and is only used for diagnostics.
type RecordTransformer interface {
	TransformRecord(idx int, r Record) (Record, error)
}

// RecordTransformerFunc adapts a plain function to the RecordTransformer interface.
type RecordTransformerFunc func(int, Record) (Record, error)

func (f RecordTransformerFunc) TransformRecord(idx int, r Record) (Record, error) { return f(idx, r) }

// ── Built-in Transforms ────────────────────────────────────

// Rename maps one source field to its output name.
type Rename struct {
	From string
	To   string
}

// RenameTransform renames fields and drops every field it does not map.
// Every mapped source field must be present: a missing one yields a
// *MappingError, so a batch that was already renamed cannot pass again.
type RenameTransform struct {
	Mapping []Rename
}

func (t *RenameTransform) TransformRecord(idx int, r Record) (Record, error) {
	out := make(map[string]any, len(t.Mapping))
	for _, m := range t.Mapping {
		v, ok := r.Data[m.From]
		if !ok {
			return Record{}, &MappingError{Record: idx, Field: m.From, To: m.To}
		}
		out[m.To] = v
	}
	return Record{Data: out}, nil
}

// Columns returns the output field names in mapping order.
func (t *RenameTransform) Columns() []string {
	cols := make([]string, len(t.Mapping))
	for i, m := range t.Mapping {
		cols[i] = m.To
	}
	return cols
}

// DateTransform parses an ISO-8601 calendar date (YYYY-MM-DD) into a
// civil.Date. Null, missing and empty values become nil;
// anything else, whitespace included, must parse.
type DateTransform struct {
	Field  string
	Schema string // schema name reported on failure
}

func (t *DateTransform) TransformRecord(idx int, r Record) (Record, error) {
	out := copyData(r.Data)
	v := r.Data[t.Field]
	if v == nil {
		out[t.Field] = nil
		return Record{Data: out}, nil
	}
	s, ok := v.(string)
	if !ok {
		return Record{}, t.invalid(idx, v, CodeTypeMismatch, "")
	}
	if s == "" {
		out[t.Field] = nil
		return Record{Data: out}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return Record{}, t.invalid(idx, v, CodeInvalidDate, "not an ISO-8601 date")
	}
	out[t.Field] = d
	return Record{Data: out}, nil
}

func (t *DateTransform) invalid(idx int, v any, code ViolationCode, reason string) *ValidationError {
	return &ValidationError{
		Schema:   t.Schema,
		Record:   idx,
		Field:    t.Field,
		Code:     code,
		Expected: "ISO-8601 date string (YYYY-MM-DD) or null",
		Value:    v,
		Reason:   reason,
	}
}

// ── Chain ──────────────────────────────────────────────────

// Chain runs record transformers in order and validates the result
// against Output. It never modifies its input batch.
type Chain struct {
	Steps  []RecordTransformer
	Output *Schema
}

// Transform implements Transformer.
func (c *Chain) Transform(b *Batch) (*Batch, error) {
	records := make([]Record, b.Len())
	if b != nil {
		copy(records, b.Records)
	}
	for _, step := range c.Steps {
		next := make([]Record, len(records))
		for i, r := range records {
			out, err := step.TransformRecord(i, r)
			if err != nil {
				return nil, err
			}
			next[i] = out
		}
		records = next
	}

	transformed := &Batch{Columns: c.columns(b), Records: records}
	if c.Output == nil {
		return transformed, nil
	}
	return Validate(transformed, c.Output)
}

// columns reports the output field order: the last renaming step decides
// it, otherwise the input order is kept.
func (c *Chain) columns(b *Batch) []string {
	for i := len(c.Steps) - 1; i >= 0; i-- {
		if rt, ok := c.Steps[i].(*RenameTransform); ok {
			return rt.Columns()
		}
	}
	if b == nil {
		return nil
	}
	return append([]string(nil), b.Columns...)
}

func copyData(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
