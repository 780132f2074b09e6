// Package vantaa holds the field dictionary for the City of Vantaa open job
// applications feed: the wire names, the table names, and the mapping between.
package vantaa

import "jobfeed/internal/etl"

const (
	// DefaultURL is the public endpoint listing open job applications.
	DefaultURL = "https://gis.vantaa.fi/rest/tyopaikat/v1/kaikki"

	// TableName is the destination table.
	TableName = "vantaa_open_applications"

	// PrimaryKey is the destination table's primary key column.
	PrimaryKey = "id"

	// EndDateField is the persisted end-date column, parsed from a string.
	EndDateField = "application_end_date"
)

var rawSchema = etl.MustSchema("raw", false,
	etl.Field{Name: "id", Type: etl.TypeInteger, Required: true},
	etl.Field{Name: "ammattiala", Type: etl.TypeString, Required: true},
	etl.Field{Name: "tyotehtava", Type: etl.TypeString, Required: true},
	etl.Field{Name: "tyoavain", Type: etl.TypeString, Required: true},
	etl.Field{Name: "osoite", Type: etl.TypeString, Required: true},
	etl.Field{Name: "haku_paattyy_pvm", Type: etl.TypeString, Nullable: true},
	etl.Field{Name: "x", Type: etl.TypeFloat, Required: true},
	etl.Field{Name: "y", Type: etl.TypeFloat, Required: true},
	etl.Field{Name: "linkki", Type: etl.TypeString, Required: true, Format: etl.FormatURL},
)

var persistedSchema = etl.MustSchema("persisted", true,
	etl.Field{Name: "id", Type: etl.TypeInteger, Required: true},
	etl.Field{Name: "field", Type: etl.TypeString, Required: true},
	etl.Field{Name: "job_title", Type: etl.TypeString, Required: true},
	etl.Field{Name: "job_key", Type: etl.TypeString, Required: true},
	etl.Field{Name: "address", Type: etl.TypeString, Required: true},
	etl.Field{Name: EndDateField, Type: etl.TypeDate, Required: true, Nullable: true},
	etl.Field{Name: "longitude_wgs84", Type: etl.TypeFloat, Required: true},
	etl.Field{Name: "latitude_wgs84", Type: etl.TypeFloat, Required: true},
	etl.Field{Name: "link", Type: etl.TypeString, Required: true, Format: etl.FormatURL},
)

var renameMapping = []etl.Rename{
	{From: "id", To: "id"},
	{From: "ammattiala", To: "field"},
	{From: "tyotehtava", To: "job_title"},
	{From: "tyoavain", To: "job_key"},
	{From: "osoite", To: "address"},
	{From: "haku_paattyy_pvm", To: EndDateField},
	{From: "x", To: "longitude_wgs84"},
	{From: "y", To: "latitude_wgs84"},
	{From: "linkki", To: "link"},
}

// RawSchema is the as-fetched shape.
func RawSchema() *etl.Schema { return rawSchema }

// PersistedSchema is the as-stored shape, one field per table column.
func PersistedSchema() *etl.Schema { return persistedSchema }

// RenameMapping returns a copy of the wire-name to column-name mapping.
func RenameMapping() []etl.Rename {
	return append([]etl.Rename(nil), renameMapping...)
}

// Columns returns the destination column names in table order.
func Columns() []string { return persistedSchema.FieldNames() }

// NewTransformer returns the raw-to-persisted transformer: rename, parse
// the end date, validate against PersistedSchema.
func NewTransformer() *etl.Chain {
	return &etl.Chain{
		Steps: []etl.RecordTransformer{
			&etl.RenameTransform{Mapping: RenameMapping()},
			&etl.DateTransform{Field: EndDateField, Schema: persistedSchema.Name},
		},
		Output: persistedSchema,
	}
}
