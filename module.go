package modgraph

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Status is the implementation state of a module.
type Status string

const (
	// StatusImplemented marks a module with a working implementation.
	StatusImplemented Status = "implemented"
	// StatusPlaceholder marks a module that is declared but not yet built.
	StatusPlaceholder Status = "placeholder"
	// StatusError marks a module whose implementation is broken.
	StatusError Status = "error"
)

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	return []Status{StatusImplemented, StatusPlaceholder, StatusError}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusImplemented, StatusPlaceholder, StatusError:
		return true
	default:
		return false
	}
}

// ParseStatus converts raw into a Status, ignoring case and surrounding space.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Module is a named unit of the architecture together with the names of the
// modules it depends on. Dependencies are plain identifiers and may name
// modules that do not exist.
type Module struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Status       Status   `json:"status" yaml:"status"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Inputs       []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	FilePath     string   `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// Clone returns a deep copy of m.
func (m Module) Clone() Module {
	m.Inputs = cloneStrings(m.Inputs)
	m.Outputs = cloneStrings(m.Outputs)
	m.Dependencies = cloneStrings(m.Dependencies)
	return m
}

// String implements fmt.Stringer.
func (m Module) String() string {
	return fmt.Sprintf("Module(%s, status=%s, deps=%d)", m.Name, m.Status, len(m.Dependencies))
}

var moduleNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// ValidateModule applies the persistence-side rules to m: the name must start
// with a letter and contain only letters, digits and underscores, and the
// status must be known. The engine itself only requires a non-empty name.
func ValidateModule(m Module) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: module name cannot be empty", ErrValidation)
	}
	if !moduleNamePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %w: %q must start with a letter and contain only letters, numbers, and underscores",
			ErrValidation, ErrInvalidModuleName, m.Name)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidStatus, m.Status)
	}
	return nil
}

// ModulePatch describes a partial update. A nil field is left untouched.
// The name is deliberately absent: it is the module's identity.
type ModulePatch struct {
	Description  *string   `json:"description,omitempty" yaml:"description,omitempty"`
	Status       *Status   `json:"status,omitempty" yaml:"status,omitempty"`
	Version      *string   `json:"version,omitempty" yaml:"version,omitempty"`
	Inputs       *[]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      *[]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Dependencies *[]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	FilePath     *string   `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the patch touches no field.
func (p ModulePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the names of the fields the patch touches.
func (p ModulePatch) Fields() []string {
	var fields []string
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Version != nil {
		fields = append(fields, "version")
	}
	if p.Inputs != nil {
		fields = append(fields, "inputs")
	}
	if p.Outputs != nil {
		fields = append(fields, "outputs")
	}
	if p.Dependencies != nil {
		fields = append(fields, "dependencies")
	}
	if p.FilePath != nil {
		fields = append(fields, "file_path")
	}
	return fields
}

// Clone returns a deep copy of p.
func (p ModulePatch) Clone() ModulePatch {
	var out ModulePatch
	if p.Description != nil {
		out.Description = Ptr(*p.Description)
	}
	if p.Status != nil {
		out.Status = Ptr(*p.Status)
	}
	if p.Version != nil {
		out.Version = Ptr(*p.Version)
	}
	out.Inputs = cloneList(p.Inputs)
	out.Outputs = cloneList(p.Outputs)
	out.Dependencies = cloneList(p.Dependencies)
	if p.FilePath != nil {
		out.FilePath = Ptr(*p.FilePath)
	}
	return out
}

// Apply returns a copy of m with the patch applied.
func (p ModulePatch) Apply(m Module) Module {
	out := m.Clone()
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Version != nil {
		out.Version = *p.Version
	}
	if p.Inputs != nil {
		out.Inputs = cloneStrings(*p.Inputs)
	}
	if p.Outputs != nil {
		out.Outputs = cloneStrings(*p.Outputs)
	}
	if p.Dependencies != nil {
		out.Dependencies = cloneStrings(*p.Dependencies)
	}
	if p.FilePath != nil {
		out.FilePath = *p.FilePath
	}
	return out
}

// Inverse captures, from current, only the fields p touches. Applying the
// result after p restores those fields and nothing else. A nil list is
// captured as an empty one so the inverse still touches the field once it
// has been through JSON.
func (p ModulePatch) Inverse(current Module) ModulePatch {
	var inv ModulePatch
	if p.Description != nil {
		inv.Description = Ptr(current.Description)
	}
	if p.Status != nil {
		inv.Status = Ptr(current.Status)
	}
	if p.Version != nil {
		inv.Version = Ptr(current.Version)
	}
	if p.Inputs != nil {
		inv.Inputs = cloneList(&current.Inputs)
	}
	if p.Outputs != nil {
		inv.Outputs = cloneList(&current.Outputs)
	}
	if p.Dependencies != nil {
		inv.Dependencies = cloneList(&current.Dependencies)
	}
	if p.FilePath != nil {
		inv.FilePath = Ptr(current.FilePath)
	}
	return inv
}

// cloneList copies a patch list. A touched list is never nil: a pointer to a
// nil slice would encode as null and read back as "field untouched".
func cloneList(p *[]string) *[]string {
	if p == nil {
		return nil
	}
	out := make([]string, len(*p))
	copy(out, *p)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}

// sortedNames returns the keys of modules in lexical order.
func sortedNames(modules map[string]Module) []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
