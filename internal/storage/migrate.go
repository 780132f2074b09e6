package storage

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"jobfeed/internal/dbclient"
	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
)

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for schema. Required
// non-nullable fields become NOT NULL; pk, if set, is the primary key.
func CreateTableSQL(dialect dbclient.Dialect, table string, schema *etl.Schema, pk string) (string, error) {
	if pk != "" {
		if _, ok := schema.Lookup(pk); !ok {
			return "", errors.Newf("primary key %q is not a field of schema %q", pk, schema.Name)
		}
	}

	defs := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		def := dialect.QuoteIdent(f.Name) + " " + dialect.ColumnType(string(f.Type))
		if f.Name == pk {
			def += " NOT NULL PRIMARY KEY"
		} else if f.Required && !f.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE IF NOT EXISTS " + dialect.QuoteIdent(table) +
		" (\n\t" + strings.Join(defs, ",\n\t") + "\n)", nil
}

// EnsureTable creates table if it does not exist. Existing tables are left
// untouched.
func EnsureTable(ctx context.Context, db *sql.DB, dialect dbclient.Dialect, table string, schema *etl.Schema, pk string) error {
	stmt, err := CreateTableSQL(dialect, table, schema, pk)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "create table %s", table)
	}
	return nil
}

// Provision opens the database named by descriptor, ensures the table
// exists, and closes the connection again.
func Provision(ctx context.Context, descriptor, table string, schema *etl.Schema, pk string, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	d, err := dbclient.ParseDescriptor(descriptor)
	if err != nil {
		return err
	}
	dialect, err := dbclient.DialectFor(d.Driver)
	if err != nil {
		return err
	}
	db, err := dbclient.Open(d)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := EnsureTable(ctx, db, dialect, table, schema, pk); err != nil {
		return errors.WithHint(err, "check database.url and that the user may create tables")
	}
	log.Infow("Table ready", logger.FieldTable, table, logger.FieldDriver, d.Driver)
	return nil
}
