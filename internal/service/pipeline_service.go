package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
	"jobfeed/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Pipeline Service: guarded runs and their triggers
// ─────────────────────────────────────────────────────────────

// Run triggers, recorded in the run log.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
)

// EngineFactory builds the engine for one run. The returned closer
// releases whatever the engine opened (the destination connection).
type EngineFactory func(ctx context.Context) (*etl.Engine, func() error, error)

// PipelineService runs one named pipeline. Runs never overlap: a trigger
// that fires while a run is in flight is refused.
type PipelineService struct {
	name    string
	factory EngineFactory
	runs    *storage.RunLogStore
	emitter EventEmitter
	log     *zap.SugaredLogger
	guard   runGuard

	// Timeout bounds a single run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewPipelineService creates a PipelineService. runs and emitter may be nil.
func NewPipelineService(
	name string,
	factory EngineFactory,
	runs *storage.RunLogStore,
	emitter EventEmitter,
	log *zap.SugaredLogger,
) *PipelineService {
	log = logger.OrNop(log)
	if emitter == nil {
		emitter = LogEmitter{Logger: log}
	}
	return &PipelineService{
		name:    name,
		factory: factory,
		runs:    runs,
		emitter: emitter,
		log:     log,
	}
}

// Name returns the pipeline name.
func (s *PipelineService) Name() string { return s.name }

// ── Run ────────────────────────────────────────────────────

// RunOnce executes the pipeline synchronously and records the outcome.
// It returns errors.ErrAlreadyRunning if another run is in flight.
func (s *PipelineService) RunOnce(ctx context.Context, trigger string) (*etl.RunResult, error) {
	if !s.guard.TryLock(s.name) {
		s.emitter.Emit(ctx, EventRunSkipped, map[string]string{"pipeline": s.name, "trigger": trigger})
		return nil, errors.Wrapf(errors.ErrAlreadyRunning, "pipeline %s", s.name)
	}
	defer s.guard.Unlock(s.name)

	runID := uuid.New().String()
	log := s.log.With(logger.FieldRunID, runID, "trigger", trigger)
	start := time.Now()

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, runErr := s.execute(runCtx, log)

	s.record(ctx, log, &storage.RunLog{
		ID:          runID,
		Pipeline:    s.name,
		Trigger:     trigger,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		Status:      result.Status,
		Stage:       string(result.Stage),
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
		Error:       result.Error,
	})
	s.emitter.Emit(ctx, EventRunCompleted, map[string]any{
		"pipeline":    s.name,
		"runId":       runID,
		"status":      result.Status,
		"rowsWritten": result.RowsWritten,
	})
	return result, runErr
}

func (s *PipelineService) execute(ctx context.Context, log *zap.SugaredLogger) (*etl.RunResult, error) {
	engine, closeFn, err := s.factory(ctx)
	if err != nil {
		err = errors.Wrap(err, "build pipeline")
		return &etl.RunResult{Status: etl.StatusError, Error: err.Error()}, err
	}
	if closeFn != nil {
		defer func() {
			if cerr := closeFn(); cerr != nil {
				log.Warnw("Closing pipeline resources failed", logger.FieldError, cerr)
			}
		}()
	}
	if engine.Logger == nil {
		engine.Logger = log
	}
	return engine.Run(ctx)
}

func (s *PipelineService) record(ctx context.Context, log *zap.SugaredLogger, l *storage.RunLog) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, l); err != nil {
		log.Warnw("Failed to record run", logger.FieldError, err)
	}
}

// ListRuns returns the most recent run logs.
func (s *PipelineService) ListRuns(ctx context.Context, limit int) ([]storage.RunLog, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.List(ctx, limit)
}

// ── Watchers (cron + file_watch) ──────────────────────────

// StartSchedule runs the pipeline on a standard five-field cron spec or a
// descriptor such as "@daily" or "@every 1h". A tick that fires while the
// previous run is still going is skipped.
func (s *PipelineService) StartSchedule(ctx context.Context, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "invalid schedule %q", spec),
			`use five cron fields ("0 6 * * *") or a descriptor ("@daily", "@every 1h")`)
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx, TriggerSchedule); err != nil {
			s.log.Errorw("Scheduled run failed", logger.FieldSchedule, spec, logger.FieldError, err)
		}
	}))

	s.mu.Lock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	s.cronSched = c
	s.mu.Unlock()

	c.Start()
	s.log.Infow("Schedule started", logger.FieldSchedule, spec, "next", sched.Next(time.Now()))
	return nil
}

// WatchFile runs the pipeline whenever path is written or created. Bursts
// of events within the debounce window collapse into one run.
func (s *PipelineService) WatchFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "bad watch path %q", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch dir %q", filepath.Dir(absPath))
	}

	watchCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stopWatcherLocked()
	s.watcher = watcher
	s.watchCancel = cancel
	s.mu.Unlock()

	go s.watchLoop(watchCtx, watcher, absPath)

	s.log.Infow("Watching file", logger.FieldFile, absPath)
	return nil
}

const watchDebounce = 500 * time.Millisecond

func (s *PipelineService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, absPath string) {
	// A pending debounce must not outlive the watch.
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				s.log.Infow("File changed, running pipeline", logger.FieldFile, absPath)
				if _, err := s.RunOnce(ctx, TriggerFileWatch); err != nil {
					s.log.Errorw("Watched run failed", logger.FieldFile, absPath, logger.FieldError, err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// WaitRunning blocks until the in-flight run finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the watcher and scheduler. Safe to call more than once.
func (s *PipelineService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

func (s *PipelineService) stopWatcherLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, logger.FieldError, err)...)
}
