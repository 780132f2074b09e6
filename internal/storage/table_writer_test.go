package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"jobfeed/internal/dbclient"
	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/vantaa"
)

func persistedRecord(id int64) etl.Record {
	return etl.Record{Data: map[string]any{
		"id":                   id,
		"field":                "Jotain",
		"job_title":            "X",
		"job_key":              "1",
		"address":              "Addr",
		"application_end_date": civil.Date{Year: 2030, Month: 12, Day: 16},
		"longitude_wgs84":      24.9354,
		"latitude_wgs84":       60.1695,
		"link":                 "https://tyot.fi/x",
	}}
}

func persistedBatch(ids ...int64) *etl.Batch {
	b := &etl.Batch{Columns: vantaa.Columns()}
	for _, id := range ids {
		b.Records = append(b.Records, persistedRecord(id))
	}
	return b
}

func newMockWriter(t *testing.T, columns []string) (*TableWriter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dialect, err := dbclient.DialectFor(dbclient.DriverPostgres)
	require.NoError(t, err)
	return NewTableWriterDB(db, dialect, "jobs", columns, zaptest.NewLogger(t).Sugar()), mock
}

func TestTableWriter_InsertSQL(t *testing.T) {
	pg, _ := dbclient.DialectFor(dbclient.DriverPostgres)
	assert.Equal(t, `INSERT INTO "jobs" ("id", "name") VALUES ($1, $2)`, insertSQL(pg, "jobs", []string{"id", "name"}))

	my, _ := dbclient.DialectFor(dbclient.DriverMySQL)
	assert.Equal(t, "INSERT INTO `jobs` (`id`, `name`) VALUES (?, ?)", insertSQL(my, "jobs", []string{"id", "name"}))
}

func TestTableWriter_CommitsInOrder(t *testing.T) {
	w, mock := newMockWriter(t, []string{"id", "name", "due"})
	insert := regexp.QuoteMeta(`INSERT INTO "jobs" ("id", "name", "due") VALUES ($1, $2, $3)`)

	mock.ExpectBegin()
	mock.ExpectExec(insert).WithArgs(int64(1), "a", "2030-12-16").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).WithArgs(int64(2), "b", nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := w.Load(context.Background(), &etl.Batch{Records: []etl.Record{
		{Data: map[string]any{"id": int64(1), "name": "a", "due": civil.Date{Year: 2030, Month: 12, Day: 16}}},
		{Data: map[string]any{"id": int64(2), "name": "b", "due": nil}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableWriter_RollsBackOnInsertFailure(t *testing.T) {
	w, mock := newMockWriter(t, []string{"id"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO").WithArgs(int64(1)).WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	n, err := w.Load(context.Background(), &etl.Batch{Records: []etl.Record{
		{Data: map[string]any{"id": int64(1)}},
		{Data: map[string]any{"id": int64(1)}},
		{Data: map[string]any{"id": int64(3)}},
	}})
	assert.Zero(t, n)

	var pe *etl.PersistenceError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "insert", pe.Op)
	assert.Equal(t, 1, pe.Record)
	assert.Equal(t, "jobs", pe.Table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableWriter_BeginAndCommitFailures(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		w, mock := newMockWriter(t, []string{"id"})
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err := w.Load(context.Background(), &etl.Batch{Records: []etl.Record{{Data: map[string]any{"id": int64(1)}}}})
		var pe *etl.PersistenceError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "begin", pe.Op)
		assert.Equal(t, -1, pe.Record)
		assert.NotEmpty(t, errors.FlattenHints(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		w, mock := newMockWriter(t, []string{"id"})
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		_, err := w.Load(context.Background(), &etl.Batch{Records: []etl.Record{{Data: map[string]any{"id": int64(1)}}}})
		var pe *etl.PersistenceError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "commit", pe.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTableWriter_EmptyBatch(t *testing.T) {
	w, mock := newMockWriter(t, []string{"id"})

	n, err := w.Load(context.Background(), &etl.Batch{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sqliteDescriptor(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	return "sqlite:///" + path, path
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+vantaa.TableName).Scan(&n))
	return n
}

func TestTableWriter_SQLiteAtomicity(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t).Sugar()
	desc, path := sqliteDescriptor(t)
	require.NoError(t, Provision(ctx, desc, vantaa.TableName, vantaa.PersistedSchema(), vantaa.PrimaryKey, log))

	w, err := NewTableWriter(desc, vantaa.TableName, vantaa.Columns(), log)
	require.NoError(t, err)
	defer w.Close()

	// second record repeats the primary key of the first
	_, err = w.Load(ctx, persistedBatch(1, 1, 3))
	var pe *etl.PersistenceError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 1, pe.Record)
	assert.Equal(t, 0, countRows(t, path))

	n, err := w.Load(ctx, persistedBatch(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, countRows(t, path))
}

func TestTableWriter_SQLiteNullDate(t *testing.T) {
	ctx := context.Background()
	desc, path := sqliteDescriptor(t)
	require.NoError(t, Provision(ctx, desc, vantaa.TableName, vantaa.PersistedSchema(), vantaa.PrimaryKey, nil))

	w, err := NewTableWriter(desc, vantaa.TableName, vantaa.Columns(), nil)
	require.NoError(t, err)
	defer w.Close()

	b := persistedBatch(7)
	b.Records[0].Data["application_end_date"] = nil
	_, err = w.Load(ctx, b)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var end sql.NullString
	require.NoError(t, db.QueryRow(`SELECT application_end_date FROM `+vantaa.TableName+` WHERE id = 7`).Scan(&end))
	assert.False(t, end.Valid)
}

func TestNewTableWriter_BadDescriptor(t *testing.T) {
	_, err := NewTableWriter("oracle://db/jobs", "t", []string{"id"}, nil)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedDriver))
}
