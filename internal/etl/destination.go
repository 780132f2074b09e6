package etl

import "context"

// ── Destination ────────────────────────────────────────────
// A Destination writes a batch into a target system, all or nothing.
// The relational implementation lives in internal/storage.

// Destination writes records to a target system.
type Destination interface {
	// Load writes every record of b in one atomic operation and returns
	// the number of records committed.
	Load(ctx context.Context, b *Batch) (int, error)
}

// DestinationFunc adapts a plain function to the Destination interface.
type DestinationFunc func(ctx context.Context, b *Batch) (int, error)

func (f DestinationFunc) Load(ctx context.Context, b *Batch) (int, error) { return f(ctx, b) }
