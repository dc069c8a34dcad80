// Package resync periodically refreshes a store from its gateway on a cron
// schedule. It covers backends that change behind the process's back, such
// as a shared SQLite file or a remote server.
package resync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/modgraph"
)

var (
	ErrNoLoader       = errors.New("resync: load function is required")
	ErrAlreadyStarted = errors.New("resync: already started")
	ErrNotStarted     = errors.New("resync: not started")
)

// LoadFunc refreshes the store. modgraph.Store.Load satisfies it.
type LoadFunc func(ctx context.Context) error

// Resyncer runs LoadFunc on a standard five-field cron schedule.
type Resyncer struct {
	spec   string
	load   LoadFunc
	logger modgraph.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	lastRun time.Time
	lastErr error
	runs    int
}

// Option configures a Resyncer.
type Option func(*Resyncer)

// WithLogger sets the logger.
func WithLogger(logger modgraph.Logger) Option {
	return func(r *Resyncer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCron supplies the cron runner, mainly so tests can use one with
// seconds precision.
func WithCron(c *cron.Cron) Option {
	return func(r *Resyncer) {
		if c != nil {
			r.cron = c
		}
	}
}

// New validates spec and returns a stopped Resyncer.
func New(spec string, load LoadFunc, opts ...Option) (*Resyncer, error) {
	if load == nil {
		return nil, ErrNoLoader
	}
	r := &Resyncer{
		spec:   spec,
		load:   load,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cron == nil {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("resync: invalid schedule %q: %w", spec, err)
		}
		r.cron = cron.New()
	}
	return r, nil
}

// Start schedules the job. Loads run with a context derived from ctx and
// stop once ctx is cancelled or Stop is called.
func (r *Resyncer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	id, err := r.cron.AddFunc(r.spec, func() { r.run(runCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("resync: schedule %q: %w", r.spec, err)
	}
	r.entry = id
	r.cancel = cancel
	r.cron.Start()
	r.logger.Info("Resync scheduled", "schedule", r.spec)
	return nil
}

// Stop unschedules the job and waits for a running load to finish.
func (r *Resyncer) Stop() error {
	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.cancel()
	r.cancel = nil
	r.cron.Remove(r.entry)
	c := r.cron
	r.mu.Unlock()

	<-c.Stop().Done()
	r.logger.Info("Resync stopped")
	return nil
}

// Next returns the next scheduled run, or the zero time when stopped.
func (r *Resyncer) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return time.Time{}
	}
	return r.cron.Entry(r.entry).Next
}

// Status reports how many loads ran, when the last one ran and its error.
func (r *Resyncer) Status() (runs int, lastRun time.Time, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, r.lastRun, r.lastErr
}

func (r *Resyncer) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := r.load(ctx)

	r.mu.Lock()
	r.runs++
	r.lastRun = start
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Resync failed", "error", err)
		return
	}
	r.logger.Debug("Resync completed", "duration", time.Since(start))
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
