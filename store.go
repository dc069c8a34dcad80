package modgraph

import (
	"context"
	"sync"
	"time"
)

// Store is the canonical collection of modules and the only mutation path
// for it. Writes go through Create, Update and Delete, which await the
// Gateway before touching local state and then record an inverse command
// in the History. Reads return copies.
//
// The Store also owns the view state the projections need: the search query,
// the status filter, structured filters, selection and dependency mode.
type Store struct {
	gateway Gateway
	history *History
	logger  Logger
	subject Subject
	now     func() time.Time

	mu      sync.RWMutex
	modules map[string]Module
	version uint64
	lastErr string

	query    string
	statuses []Status
	filters  []SearchFilter

	multiSelect bool
	selectedID  string
	selected    map[string]struct{}

	dependencyMode bool
	pendingSource  string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(limit int) StoreOption {
	return func(s *Store) {
		s.history = NewHistory(limit)
	}
}

// WithSubject routes change events to subject.
func WithSubject(subject Subject) StoreOption {
	return func(s *Store) {
		s.subject = subject
	}
}

// WithClock overrides the time source used for command timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty Store backed by gw. Call Load to fetch the
// persisted snapshot.
func NewStore(gw Gateway, opts ...StoreOption) (*Store, error) {
	if gw == nil {
		return nil, ErrGatewayNil
	}
	s := &Store{
		gateway:  gw,
		history:  NewHistory(DefaultHistoryLimit),
		logger:   nopLogger{},
		now:      time.Now,
		modules:  make(map[string]Module),
		selected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// History exposes the command history.
func (s *Store) History() *History {
	return s.history
}

// Load replaces the whole collection with the gateway's snapshot. It clears
// the error message and prunes selections of names that disappeared, but
// leaves undo and redo history alone.
func (s *Store) Load(ctx context.Context) error {
	snapshot, err := s.gateway.GetAll(ctx)
	if err != nil {
		return s.remoteFailure("load", "", err)
	}

	modules := make(map[string]Module, len(snapshot))
	for name, m := range snapshot {
		m = m.Clone()
		if m.Name == "" {
			m.Name = name
		}
		modules[m.Name] = m
	}

	s.mu.Lock()
	s.modules = modules
	s.version++
	s.lastErr = ""
	s.pruneSelectionLocked()
	count := len(s.modules)
	s.mu.Unlock()

	s.logger.Info("Modules loaded", "count", count)
	s.emit(ctx, EventTypeModulesLoaded, map[string]any{"count": count})
	return nil
}

// Get returns a copy of the named module.
func (s *Store) Get(name string) (Module, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[name]
	if !ok {
		return Module{}, false
	}
	return m.Clone(), true
}

// Has reports whether name is a live module.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.modules[name]
	return ok
}

// Modules returns copies of every module ordered by name.
func (s *Store) Modules() []Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modulesLocked()
}

// Len returns the number of modules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modules)
}

// Version is bumped on every committed change. Renderers can compare it to
// skip recomputing projections.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastError returns the message of the most recent gateway or batch failure.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// CanUndo reports whether an undo is available.
func (s *Store) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether a redo is available.
func (s *Store) CanRedo() bool {
	return s.history.CanRedo()
}

// Undo reverts the last command. It returns false when there was nothing to
// undo.
func (s *Store) Undo(ctx context.Context) (bool, error) {
	cmd, err := s.history.Undo(ctx)
	if err != nil {
		s.logger.Error("Undo failed", "error", err)
		return false, err
	}
	if cmd == nil {
		return false, nil
	}
	s.logger.Debug("Command undone", "command", cmd.Description, "type", cmd.Type)
	s.emit(ctx, EventTypeHistoryUndone, cmd.info())
	return true, nil
}

// Redo re-applies the last undone command. It returns false when there was
// nothing to redo.
func (s *Store) Redo(ctx context.Context) (bool, error) {
	cmd, err := s.history.Redo(ctx)
	if err != nil {
		s.logger.Error("Redo failed", "error", err)
		return false, err
	}
	if cmd == nil {
		return false, nil
	}
	s.logger.Debug("Command redone", "command", cmd.Description, "type", cmd.Type)
	s.emit(ctx, EventTypeHistoryRedone, cmd.info())
	return true, nil
}

func (s *Store) modulesLocked() []Module {
	out := make([]Module, 0, len(s.modules))
	for _, name := range sortedNames(s.modules) {
		out = append(out, s.modules[name].Clone())
	}
	return out
}

// remoteFailure records err for display and wraps it for the caller.
func (s *Store) remoteFailure(op, name string, err error) error {
	remote := &RemoteError{Op: op, Name: name, Err: err}
	s.mu.Lock()
	s.lastErr = remote.Error()
	s.mu.Unlock()
	s.logger.Error("Gateway call failed", "op", op, "module", name, "error", err)
	return remote
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *Store) emit(ctx context.Context, eventType string, data any) {
	if err := s.emitEvent(ctx, eventType, data); err != nil {
		HandleEventEmissionError(err, s.logger, eventType)
	}
}

// emitEvent returns ErrNoSubjectForEventEmission when no subject is wired.
func (s *Store) emitEvent(ctx context.Context, eventType string, data any) error {
	if s.subject == nil {
		return ErrNoSubjectForEventEmission
	}
	return s.subject.NotifyObservers(ctx, NewCloudEvent(eventType, EventSource, data, nil))
}
