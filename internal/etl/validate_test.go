package etl

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/internal/errors"
)

func testSchema(t *testing.T, closed bool) *Schema {
	t.Helper()
	s, err := NewSchema("test", closed,
		Field{Name: "id", Type: TypeInteger, Required: true},
		Field{Name: "name", Type: TypeString, Required: true},
		Field{Name: "score", Type: TypeFloat, Required: true},
		Field{Name: "due", Type: TypeString, Nullable: true},
		Field{Name: "link", Type: TypeString, Required: true, Format: FormatURL},
	)
	require.NoError(t, err)
	return s
}

func validRow() map[string]any {
	return map[string]any{
		"id":    json.Number("233"),
		"name":  "Jotain",
		"score": json.Number("24.9354"),
		"due":   "2030-12-16",
		"link":  "https://tyot.fi/x",
	}
}

func requireViolation(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T: %v", err, err)
	return ve
}

func TestNewSchema(t *testing.T) {
	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewSchema("dup", false,
			Field{Name: "id", Type: TypeInteger},
			Field{Name: "id", Type: TypeString},
		)
		assert.ErrorContains(t, err, `duplicate field "id"`)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := NewSchema("empty", false, Field{Type: TypeString})
		assert.Error(t, err)
	})

	t.Run("keeps declaration order", func(t *testing.T) {
		s := testSchema(t, false)
		assert.Equal(t, []string{"id", "name", "score", "due", "link"}, s.FieldNames())
		f, ok := s.Lookup("link")
		require.True(t, ok)
		assert.Equal(t, FormatURL, f.Format)
	})
}

func TestValidate_Normalizes(t *testing.T) {
	s := testSchema(t, false)
	in := NewBatch([]map[string]any{validRow()})

	out, err := Validate(in, s)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	rec := out.Records[0].Data
	assert.Equal(t, int64(233), rec["id"])
	assert.Equal(t, 24.9354, rec["score"])
	assert.Equal(t, "Jotain", rec["name"])
	assert.Equal(t, []string{"id", "name", "score", "due", "link"}, out.Columns)

	// input is untouched
	assert.Equal(t, json.Number("233"), in.Records[0].Data["id"])
}

func TestValidate_StrictInteger(t *testing.T) {
	s := testSchema(t, false)

	cases := []struct {
		name  string
		value any
	}{
		{"numeric string", "233"},
		{"decimal literal", json.Number("233.0")},
		{"exponent literal", json.Number("2.33e2")},
		{"float", 233.0},
		{"bool", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			row["id"] = tc.value

			_, err := Validate(NewBatch([]map[string]any{row}), s)
			ve := requireViolation(t, err)
			assert.Equal(t, "id", ve.Field)
			assert.Equal(t, CodeTypeMismatch, ve.Code)
			assert.Equal(t, 0, ve.Record)
		})
	}

	t.Run("accepts go integers", func(t *testing.T) {
		row := validRow()
		row["id"] = 233
		out, err := Validate(NewBatch([]map[string]any{row}), s)
		require.NoError(t, err)
		assert.Equal(t, int64(233), out.Records[0].Data["id"])
	})
}

func TestValidate_FloatRejectsStrings(t *testing.T) {
	row := validRow()
	row["score"] = "24.9"
	_, err := Validate(NewBatch([]map[string]any{row}), testSchema(t, false))
	ve := requireViolation(t, err)
	assert.Equal(t, "score", ve.Field)
	assert.Equal(t, CodeTypeMismatch, ve.Code)
}

func TestValidate_Presence(t *testing.T) {
	s := testSchema(t, false)

	t.Run("missing required field", func(t *testing.T) {
		row := validRow()
		delete(row, "id")
		_, err := Validate(NewBatch([]map[string]any{row}), s)
		ve := requireViolation(t, err)
		assert.Equal(t, "id", ve.Field)
		assert.Equal(t, CodeMissingField, ve.Code)
		assert.Contains(t, ve.Error(), `field "id"`)
	})

	t.Run("null in required field", func(t *testing.T) {
		row := validRow()
		row["name"] = nil
		_, err := Validate(NewBatch([]map[string]any{row}), s)
		ve := requireViolation(t, err)
		assert.Equal(t, "name", ve.Field)
		assert.Equal(t, CodeNullValue, ve.Code)
	})

	t.Run("optional field absent becomes null", func(t *testing.T) {
		row := validRow()
		delete(row, "due")
		out, err := Validate(NewBatch([]map[string]any{row}), s)
		require.NoError(t, err)
		v, present := out.Records[0].Data["due"]
		assert.True(t, present)
		assert.Nil(t, v)
	})

	t.Run("optional field null", func(t *testing.T) {
		row := validRow()
		row["due"] = nil
		_, err := Validate(NewBatch([]map[string]any{row}), s)
		assert.NoError(t, err)
	})
}

func TestValidate_URLFormat(t *testing.T) {
	s := testSchema(t, false)

	for _, bad := range []string{"", "not a url", "tyot.fi/x", "ftp://tyot.fi/x"} {
		t.Run(bad, func(t *testing.T) {
			row := validRow()
			row["link"] = bad
			_, err := Validate(NewBatch([]map[string]any{row}), s)
			ve := requireViolation(t, err)
			assert.Equal(t, "link", ve.Field)
			assert.Equal(t, CodeFormatMismatch, ve.Code)
		})
	}
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("https://gis.vantaa.fi/rest/tyopaikat/v1/kaikki"))
	assert.True(t, IsHTTPURL("http://localhost:8080/feed"))
	for _, bad := range []string{"", "https://", "tyot.fi/x", "ftp://tyot.fi/x"} {
		assert.False(t, IsHTTPURL(bad), bad)
	}
}

func TestValidate_FailFast(t *testing.T) {
	s := testSchema(t, false)

	t.Run("first field in schema order wins", func(t *testing.T) {
		row := validRow()
		row["link"] = "nope"
		row["id"] = "233"
		_, err := Validate(NewBatch([]map[string]any{row}), s)
		ve := requireViolation(t, err)
		assert.Equal(t, "id", ve.Field)
	})

	t.Run("first failing record wins", func(t *testing.T) {
		first, second, third := validRow(), validRow(), validRow()
		second["name"] = 7
		third["id"] = "x"
		_, err := Validate(NewBatch([]map[string]any{first, second, third}), s)
		ve := requireViolation(t, err)
		assert.Equal(t, 1, ve.Record)
		assert.Equal(t, "name", ve.Field)
	})
}

func TestValidate_UndeclaredFields(t *testing.T) {
	row := validRow()
	row["extra"] = "kept"

	t.Run("open schema keeps them", func(t *testing.T) {
		out, err := Validate(NewBatch([]map[string]any{row}), testSchema(t, false))
		require.NoError(t, err)
		assert.Equal(t, "kept", out.Records[0].Data["extra"])
		assert.Equal(t, "extra", out.Columns[len(out.Columns)-1])
	})

	t.Run("closed schema rejects them", func(t *testing.T) {
		_, err := Validate(NewBatch([]map[string]any{row}), testSchema(t, true))
		ve := requireViolation(t, err)
		assert.Equal(t, "extra", ve.Field)
		assert.Equal(t, CodeUnexpectedField, ve.Code)
	})
}

func TestValidate_Dates(t *testing.T) {
	s := MustSchema("dates", true, Field{Name: "d", Type: TypeDate, Required: true, Nullable: true})

	out, err := Validate(&Batch{Records: []Record{{Data: map[string]any{"d": civil.Date{Year: 2030, Month: 12, Day: 16}}}}}, s)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2030, Month: 12, Day: 16}, out.Records[0].Data["d"])

	_, err = Validate(&Batch{Records: []Record{{Data: map[string]any{"d": "2030-12-16"}}}}, s)
	ve := requireViolation(t, err)
	assert.Equal(t, CodeTypeMismatch, ve.Code)
}

func TestValidate_EmptyAndNilBatch(t *testing.T) {
	s := testSchema(t, true)

	out, err := Validate(nil, s)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())

	out, err = Validate(&Batch{}, s)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "transport", Kind(&TransportError{URL: "u", StatusCode: 500}))
	assert.Equal(t, "validation", Kind(errors.Wrap(&ValidationError{Schema: "s"}, "extract")))
	assert.Equal(t, "mapping", Kind(&MappingError{Field: "id"}))
	assert.Equal(t, "persistence", Kind(&PersistenceError{Op: "commit", Err: errors.New("x")}))
	assert.Equal(t, "", Kind(errors.New("other")))
	assert.Equal(t, "", Kind(nil))
}
