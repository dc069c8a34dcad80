// Package surrogate runs stand-ins for modules that are not implemented yet.
// A surrogate takes the inputs a module would receive and returns
// placeholder outputs, so the modules that depend on it can be exercised
// before the real thing exists.
package surrogate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/config"
)

// DefaultType is used when a run names no surrogate.
const DefaultType = "static_stub"

var (
	ErrUnknownSurrogate = errors.New("unknown surrogate type")
	ErrNilFactory       = errors.New("surrogate factory is nil")
)

// Surrogate produces placeholder outputs for a module.
type Surrogate interface {
	Run(ctx context.Context, inputs map[string]any) (map[string]any, error)
	Info() Info
}

// Info describes a surrogate implementation.
type Info struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Factory builds a fresh Surrogate for every run.
type Factory func() Surrogate

// Registry maps surrogate type names to factories. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    modgraph.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger modgraph.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Defaults returns a registry holding static_stub and mock_llm, the latter
// configured from cfg.
func Defaults(cfg config.SurrogateConfig, opts ...Option) *Registry {
	r := NewRegistry(opts...)
	_ = r.Register(DefaultType, func() Surrogate { return NewStaticStub(nil) })
	_ = r.Register("mock_llm", func() Surrogate {
		return NewMockLLM(WithPromptTemplate(cfg.PromptTemplate), WithPromptLog(cfg.PromptLog))
	})
	return r
}

// Register binds name to factory, replacing any earlier binding.
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return nil
}

// Create builds a new instance of the named surrogate.
func (r *Registry) Create(name string) (Surrogate, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSurrogate, name)
	}
	return factory(), nil
}

// Names returns the registered type names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// List maps every registered name to the Info of a fresh instance.
func (r *Registry) List() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Info, len(r.factories))
	for name, factory := range r.factories {
		out[name] = factory().Info()
	}
	return out
}

// Result is the outcome of running a surrogate for a module.
type Result struct {
	ModuleName    string         `json:"module_name"`
	SurrogateType string         `json:"surrogate_type"`
	Inputs        map[string]any `json:"inputs"`
	Outputs       map[string]any `json:"outputs"`
	ExecutionInfo ExecutionInfo  `json:"execution_info"`
}

// ExecutionInfo records what ran.
type ExecutionInfo struct {
	ModuleStatus  modgraph.Status `json:"module_status"`
	SurrogateInfo Info            `json:"surrogate_info"`
}

// Execute runs the named surrogate for m. An empty surrogateType means
// DefaultType; empty inputs are replaced by DummyInputs(m).
func (r *Registry) Execute(ctx context.Context, m modgraph.Module, surrogateType string, inputs map[string]any) (Result, error) {
	if surrogateType == "" {
		surrogateType = DefaultType
	}
	s, err := r.Create(surrogateType)
	if err != nil {
		return Result{}, err
	}
	if len(inputs) == 0 {
		inputs = DummyInputs(m)
	}

	outputs, err := s.Run(ctx, inputs)
	if err != nil {
		r.logger.Error("Surrogate run failed", "module", m.Name, "surrogate", surrogateType, "error", err)
		return Result{}, fmt.Errorf("running %s surrogate for module %s: %w", surrogateType, m.Name, err)
	}
	r.logger.Debug("Surrogate executed", "module", m.Name, "surrogate", surrogateType)
	return Result{
		ModuleName:    m.Name,
		SurrogateType: surrogateType,
		Inputs:        inputs,
		Outputs:       outputs,
		ExecutionInfo: ExecutionInfo{ModuleStatus: m.Status, SurrogateInfo: s.Info()},
	}, nil
}

// DummyInputs fills every declared input of m with a placeholder value.
func DummyInputs(m modgraph.Module) map[string]any {
	inputs := make(map[string]any, len(m.Inputs))
	for _, in := range m.Inputs {
		inputs[in] = "dummy-" + strings.ToLower(in)
	}
	return inputs
}

func inputKeys(inputs map[string]any) []string {
	keys := slices.Sorted(maps.Keys(inputs))
	if keys == nil {
		keys = []string{}
	}
	return keys
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
