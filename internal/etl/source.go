package etl

import "context"

// ── Source ──────────────────────────────────────────────────
// A Source extracts one batch from an external system.
// Implementations live in etl/sources/, one file per source type.

// Source is the interface every data source must implement.
type Source interface {
	// Extract performs one blocking read and returns a validated batch.
	// No partial batch is returned on failure.
	Extract(ctx context.Context) (*Batch, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) (*Batch, error)

func (f SourceFunc) Extract(ctx context.Context) (*Batch, error) { return f(ctx) }
