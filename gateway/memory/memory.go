// Package memory provides a map-backed modgraph.Gateway. It is the reference
// gateway for tests and the "memory" storage backend, and supports failure
// injection per operation and module.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoCodeAlone/modgraph"
)

// Operation names used for failure injection.
const (
	OpGetAll = "getall"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Gateway keeps modules in a map.
type Gateway struct {
	mu       sync.RWMutex
	modules  map[string]modgraph.Module
	validate bool
	failures map[string]error
	delays   map[string]time.Duration
	calls    map[string]int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithModules seeds the gateway.
func WithModules(modules ...modgraph.Module) Option {
	return func(g *Gateway) {
		for _, m := range modules {
			g.modules[m.Name] = m.Clone()
		}
	}
}

// WithValidation applies modgraph.ValidateModule to created and updated
// modules, the way a persisting server would.
func WithValidation() Option {
	return func(g *Gateway) {
		g.validate = true
	}
}

// New creates an empty Gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		modules:  make(map[string]modgraph.Module),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FailOn makes every op call for name return err until ClearFailures. Use
// an empty name with OpGetAll.
func (g *Gateway) FailOn(op, name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[key(op, name)] = err
}

// ClearFailures removes every injected failure.
func (g *Gateway) ClearFailures() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = make(map[string]error)
}

// DelayOn makes every call touching name sleep for d before answering.
func (g *Gateway) DelayOn(name string, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delays[name] = d
}

// Calls returns how many times op was invoked, failed calls included.
func (g *Gateway) Calls(op string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.calls[op]
}

// Snapshot returns a copy of the stored modules.
func (g *Gateway) Snapshot() map[string]modgraph.Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return copyModules(g.modules)
}

// GetAll implements modgraph.Gateway.
func (g *Gateway) GetAll(ctx context.Context) (map[string]modgraph.Module, error) {
	if err := g.enter(ctx, OpGetAll, ""); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return copyModules(g.modules), nil
}

// Create implements modgraph.Gateway.
func (g *Gateway) Create(ctx context.Context, m modgraph.Module) (modgraph.Module, error) {
	if err := g.enter(ctx, OpCreate, m.Name); err != nil {
		return modgraph.Module{}, err
	}
	if g.validate {
		if err := modgraph.ValidateModule(m); err != nil {
			return modgraph.Module{}, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.modules[m.Name]; exists {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrConflict, m.Name)
	}
	g.modules[m.Name] = m.Clone()
	return m.Clone(), nil
}

// Update implements modgraph.Gateway.
func (g *Gateway) Update(ctx context.Context, name string, patch modgraph.ModulePatch) (modgraph.Module, error) {
	if err := g.enter(ctx, OpUpdate, name); err != nil {
		return modgraph.Module{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	current, ok := g.modules[name]
	if !ok {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}
	updated := patch.Apply(current)
	if g.validate {
		if err := modgraph.ValidateModule(updated); err != nil {
			return modgraph.Module{}, err
		}
	}
	g.modules[name] = updated.Clone()
	return updated, nil
}

// Delete implements modgraph.Gateway.
func (g *Gateway) Delete(ctx context.Context, name string) error {
	if err := g.enter(ctx, OpDelete, name); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.modules[name]; !ok {
		return fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}
	delete(g.modules, name)
	return nil
}

// enter counts the call, honours injected delays and returns any injected
// failure.
func (g *Gateway) enter(ctx context.Context, op, name string) error {
	g.mu.Lock()
	g.calls[op]++
	delay := g.delays[name]
	err := g.failures[key(op, name)]
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func key(op, name string) string {
	return op + "/" + name
}

func copyModules(in map[string]modgraph.Module) map[string]modgraph.Module {
	out := make(map[string]modgraph.Module, len(in))
	for name, m := range in {
		out[name] = m.Clone()
	}
	return out
}
