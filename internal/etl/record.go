package etl

import (
	"fmt"
	"sort"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// Sources emit Batches, transformers map them to new Batches, destinations
// consume them. A Batch handed downstream is never modified again.

// FieldType is the value type a Field constrains its values to.
type FieldType string

const (
	TypeInteger FieldType = "integer"
	TypeFloat   FieldType = "float"
	TypeString  FieldType = "string"
	TypeDate    FieldType = "date"
)

// Format is an additional rule on top of the field type.
type Format string

const (
	FormatNone Format = ""
	FormatURL  Format = "url" // absolute http(s) URL
)

// Field describes a single column constraint in a Schema.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Nullable bool      `json:"nullable,omitempty"`
	Format   Format    `json:"format,omitempty"`
}

// Schema is an ordered set of field constraints with unique names.
// A closed schema rejects records carrying fields it does not declare.
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
	Closed bool    `json:"closed,omitempty"`

	index map[string]int
}

// NewSchema builds a Schema, rejecting empty or duplicate field names.
func NewSchema(name string, closed bool, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, Closed: closed, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %q: field %d has no name", name, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema for static definitions; it panics on error.
func MustSchema(name string, closed bool, fields ...Field) *Schema {
	s, err := NewSchema(name, closed, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field declared under name.
func (s *Schema) Lookup(name string) (Field, bool) {
	if s.index == nil {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return Field{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Record is a single row of data flowing through the pipeline.
type Record struct {
	Data map[string]any `json:"data"`
}

// Batch is an ordered sequence of records sharing one shape.
// Columns is the field order used when the batch is written out.
type Batch struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// NewBatch builds a Batch from raw maps, keeping their order. Columns are the
// union of all keys, sorted, since JSON objects carry no reliable key order.
func NewBatch(rows []map[string]any) *Batch {
	seen := make(map[string]struct{})
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(row))
		for k, v := range row {
			data[k] = v
			seen[k] = struct{}{}
		}
		records = append(records, Record{Data: data})
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return &Batch{Columns: columns, Records: records}
}

// Len returns the number of records; a nil batch is empty.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
