package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"jobfeed/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the service from whoever reports runs
// ─────────────────────────────────────────────────────────────

// Events emitted by PipelineService.
const (
	EventRunCompleted = "pipeline:run-completed"
	EventRunSkipped   = "pipeline:run-skipped"
)

// EventEmitter receives notifications about pipeline runs.
// The CLI uses LogEmitter; tests use MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a zap logger.
type LogEmitter struct {
	Logger *zap.SugaredLogger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	logger.OrNop(e.Logger).Infow("Pipeline event", "event", event, "data", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// It is safe for use from scheduler and watcher goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Snapshot returns a copy of the recorded events.
func (m *MockEmitter) Snapshot() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}
