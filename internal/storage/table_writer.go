package storage

import (
	"context"
	"database/sql"
	"strings"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"jobfeed/internal/dbclient"
	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
)

// ── Table writer ───────────────────────────────────────────
// The relational etl.Destination. Each Load is one transaction: every
// record is inserted in batch order and committed together, or the whole
// batch is rolled back.

// TableWriter inserts batches into one table.
type TableWriter struct {
	db      *sql.DB
	owned   bool
	table   string
	columns []string
	insert  string
	log     *zap.SugaredLogger
}

// NewTableWriter opens the connection described by descriptor. The writer
// owns the connection; Close releases it.
func NewTableWriter(descriptor, table string, columns []string, log *zap.SugaredLogger) (*TableWriter, error) {
	d, err := dbclient.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	dialect, err := dbclient.DialectFor(d.Driver)
	if err != nil {
		return nil, err
	}
	db, err := dbclient.Open(d)
	if err != nil {
		return nil, err
	}
	w := NewTableWriterDB(db, dialect, table, columns, log)
	w.owned = true
	return w, nil
}

// NewTableWriterDB wraps an existing connection. Close does not close db.
func NewTableWriterDB(db *sql.DB, dialect dbclient.Dialect, table string, columns []string, log *zap.SugaredLogger) *TableWriter {
	return &TableWriter{
		db:      db,
		table:   table,
		columns: append([]string(nil), columns...),
		insert:  insertSQL(dialect, table, columns),
		log:     logger.OrNop(log),
	}
}

func insertSQL(dialect dbclient.Dialect, table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = dialect.QuoteIdent(c)
		marks[i] = dialect.Placeholder(i + 1)
	}
	return "INSERT INTO " + dialect.QuoteIdent(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

// Load implements etl.Destination.
func (w *TableWriter) Load(ctx context.Context, b *etl.Batch) (int, error) {
	if b.Len() == 0 {
		w.log.Infow("Nothing to load", logger.FieldTable, w.table)
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.WithHint(
			&etl.PersistenceError{Table: w.table, Op: "begin", Record: -1, Err: err},
			"check that database.url is reachable",
		)
	}

	for i, rec := range b.Records {
		args := make([]any, len(w.columns))
		for j, c := range w.columns {
			args[j] = bindValue(rec.Data[c])
		}
		if _, err := tx.ExecContext(ctx, w.insert, args...); err != nil {
			w.rollback(tx, i)
			return 0, &etl.PersistenceError{Table: w.table, Op: "insert", Record: i, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		w.rollback(tx, -1)
		return 0, &etl.PersistenceError{Table: w.table, Op: "commit", Record: -1, Err: err}
	}

	w.log.Debugw("Batch committed", logger.FieldTable, w.table, logger.FieldRowsWrite, b.Len())
	return b.Len(), nil
}

func (w *TableWriter) rollback(tx *sql.Tx, record int) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		w.log.Errorw("Rollback failed", logger.FieldTable, w.table, logger.FieldError, err)
		return
	}
	w.log.Warnw("Batch rolled back", logger.FieldTable, w.table, "record", record)
}

// Close releases the connection if the writer opened it.
func (w *TableWriter) Close() error {
	if !w.owned {
		return nil
	}
	return w.db.Close()
}

// bindValue converts record values into driver arguments. Dates are bound
// as YYYY-MM-DD, which every supported database accepts for a DATE column.
func bindValue(v any) any {
	switch val := v.(type) {
	case civil.Date:
		return val.String()
	case *civil.Date:
		if val == nil {
			return nil
		}
		return val.String()
	default:
		return v
	}
}
