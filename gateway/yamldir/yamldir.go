// Package yamldir persists modules as one YAML document per file in a
// directory. It implements modgraph.Gateway and is the default storage
// backend of the server.
package yamldir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/modgraph"
)

// ErrDuplicateModule is returned when two files declare the same name.
var ErrDuplicateModule = errors.New("duplicate module name")

// Repository reads and writes <name>.yaml files under Dir.
type Repository struct {
	dir    string
	logger modgraph.Logger

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(logger modgraph.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Repository rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Repository, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: modules directory is required", modgraph.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create modules dir: %w", err)
	}
	r := &Repository{dir: dir, logger: nopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the modules directory.
func (r *Repository) Dir() string {
	return r.dir
}

// GetAll implements modgraph.Gateway.
func (r *Repository) GetAll(ctx context.Context) (map[string]modgraph.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modules, _, err := r.scan()
	if err != nil {
		return nil, err
	}
	return modules, nil
}

// Create implements modgraph.Gateway.
func (r *Repository) Create(ctx context.Context, m modgraph.Module) (modgraph.Module, error) {
	if err := modgraph.ValidateModule(m); err != nil {
		return modgraph.Module{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	modules, _, err := r.scan()
	if err != nil {
		return modgraph.Module{}, err
	}
	if _, exists := modules[m.Name]; exists {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrConflict, m.Name)
	}

	path := filepath.Join(r.dir, m.Name+".yaml")
	if _, err := os.Stat(path); err == nil {
		return modgraph.Module{}, fmt.Errorf("%w: file %s already exists", modgraph.ErrConflict, path)
	}
	if err := writeModule(path, m); err != nil {
		return modgraph.Module{}, err
	}

	out := m.Clone()
	out.FilePath = path
	r.logger.Debug("Module file written", "module", m.Name, "path", path)
	return out, nil
}

// Update implements modgraph.Gateway.
func (r *Repository) Update(ctx context.Context, name string, patch modgraph.ModulePatch) (modgraph.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modules, paths, err := r.scan()
	if err != nil {
		return modgraph.Module{}, err
	}
	current, ok := modules[name]
	if !ok {
		return modgraph.Module{}, fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}

	// file_path is derived from where the document lives.
	patch.FilePath = nil
	updated := patch.Apply(current)
	if err := modgraph.ValidateModule(updated); err != nil {
		return modgraph.Module{}, err
	}
	if err := writeModule(paths[name], updated); err != nil {
		return modgraph.Module{}, err
	}
	r.logger.Debug("Module file updated", "module", name, "path", paths[name])
	return updated, nil
}

// Delete implements modgraph.Gateway.
func (r *Repository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, paths, err := r.scan()
	if err != nil {
		return err
	}
	path, ok := paths[name]
	if !ok {
		return fmt.Errorf("%w: %s", modgraph.ErrNotFound, name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	r.logger.Debug("Module file removed", "module", name, "path", path)
	return nil
}

func (r *Repository) scan() (map[string]modgraph.Module, map[string]string, error) {
	list, err := LoadDir(r.dir)
	if err != nil {
		return nil, nil, err
	}
	modules := make(map[string]modgraph.Module, len(list))
	paths := make(map[string]string, len(list))
	for _, m := range list {
		modules[m.Name] = m
		paths[m.Name] = m.FilePath
	}
	return modules, paths, nil
}

// LoadDir reads every *.yaml and *.yml file in dir, validates each module
// and rejects duplicate names. FilePath is set to the source file. The
// result is ordered by name.
func LoadDir(dir string) ([]modgraph.Module, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	files, err := moduleFiles(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	modules := make([]modgraph.Module, 0, len(files))
	for _, path := range files {
		m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("%w: %q found in %s and %s", ErrDuplicateModule, m.Name, first, path)
		}
		seen[m.Name] = path
		modules = append(modules, m)
	}
	slices.SortFunc(modules, func(a, b modgraph.Module) int { return strings.Compare(a.Name, b.Name) })
	return modules, nil
}

// LoadFile decodes and validates a single module file.
func LoadFile(path string) (modgraph.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return modgraph.Module{}, fmt.Errorf("failed to load YAML file %s: %w", path, err)
	}
	var m modgraph.Module
	if err := yaml.Unmarshal(data, &m); err != nil {
		return modgraph.Module{}, fmt.Errorf("failed to load YAML file %s: %w", path, err)
	}
	if err := modgraph.ValidateModule(m); err != nil {
		return modgraph.Module{}, fmt.Errorf("validation failed for %s: %w", path, err)
	}
	if m.Dependencies == nil {
		m.Dependencies = []string{}
	}
	m.FilePath = path
	return m, nil
}

// IsModuleFile reports whether path has a module file extension.
func IsModuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func moduleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsModuleFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// writeModule writes m to path through a temporary file so readers never
// see a partial document.
func writeModule(path string, m modgraph.Module) error {
	m = m.Clone()
	m.FilePath = ""
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
