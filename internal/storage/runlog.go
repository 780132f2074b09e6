package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunLog is one recorded pipeline run.
type RunLog struct {
	ID          string    `json:"id"`
	Pipeline    string    `json:"pipeline"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	Error       string    `json:"error,omitempty"`
}

// RunLogStore persists run logs in the state database.
type RunLogStore struct {
	db *DB
}

// NewRunLogStore creates a new RunLogStore.
func NewRunLogStore(db *DB) *RunLogStore {
	return &RunLogStore{db: db}
}

// Create inserts l, assigning an ID when it has none.
func (s *RunLogStore) Create(ctx context.Context, l *RunLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Trigger == "" {
		l.Trigger = "manual"
	}
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO etl_runs (id, pipeline, trigger_type, started_at, finished_at, status, stage, rows_read, rows_written, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Pipeline, l.Trigger, l.StartedAt.UTC(), l.FinishedAt.UTC(), l.Status, l.Stage, l.RowsRead, l.RowsWritten, l.Error,
	)
	return err
}

// List returns up to limit runs, newest first. A non-positive limit means 20.
func (s *RunLogStore) List(ctx context.Context, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, pipeline, trigger_type, started_at, finished_at, status, stage, rows_read, rows_written, error
		 FROM etl_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		if err := rows.Scan(&l.ID, &l.Pipeline, &l.Trigger, &l.StartedAt, &l.FinishedAt, &l.Status, &l.Stage, &l.RowsRead, &l.RowsWritten, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
