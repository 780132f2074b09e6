package logger

import "go.uber.org/zap"

// Standard field names for structured logging.
// Use these constants instead of raw strings to keep keys consistent.
const (
	FieldRunID      = "run_id"
	FieldStage      = "stage"
	FieldComponent  = "component"
	FieldURL        = "url"
	FieldStatus     = "status"
	FieldCount      = "count"
	FieldRowsRead   = "rows_read"
	FieldRowsWrite  = "rows_written"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldTable      = "table"
	FieldDriver     = "driver"
	FieldSchedule   = "schedule"
	FieldFile       = "file"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
