package modgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// FilterType names the attribute a SearchFilter tests.
type FilterType string

const (
	FilterStatus      FilterType = "status"
	FilterDependency  FilterType = "dependency"
	FilterVersion     FilterType = "version"
	FilterName        FilterType = "name"
	FilterDescription FilterType = "description"
)

// Valid reports whether t is a known filter type.
func (t FilterType) Valid() bool {
	switch t {
	case FilterStatus, FilterDependency, FilterVersion, FilterName, FilterDescription:
		return true
	default:
		return false
	}
}

// SearchFilter is one structured predicate. All filters in a Query must
// match.
type SearchFilter struct {
	Type  FilterType `json:"type"`
	Value string     `json:"value"`
	Label string     `json:"label"`
}

// NewSearchFilter builds a filter with a default label such as
// "status: error".
func NewSearchFilter(t FilterType, value string) (SearchFilter, error) {
	if !t.Valid() {
		return SearchFilter{}, fmt.Errorf("%w: unknown filter type %q", ErrValidation, t)
	}
	return SearchFilter{Type: t, Value: value, Label: fmt.Sprintf("%s: %s", t, value)}, nil
}

// Query is the input of FilterModules. Every axis left empty matches all
// modules.
type Query struct {
	Text     string
	Statuses []Status
	Filters  []SearchFilter
}

// FilterModules returns the modules matching q, ordered by name. It never
// modifies its input.
func FilterModules(modules []Module, q Query) []Module {
	out := make([]Module, 0, len(modules))
	for _, m := range modules {
		if q.Matches(m) {
			out = append(out, m.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Module) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Matches reports whether m passes the text query, the status set and
// every structured filter.
func (q Query) Matches(m Module) bool {
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, m.Status) {
		return false
	}
	if !matchesText(m, q.Text) {
		return false
	}
	for _, f := range q.Filters {
		if !f.Matches(m) {
			return false
		}
	}
	return true
}

func matchesText(m Module, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	if containsFold(m.Name, needle) || containsFold(m.Description, needle) || containsFold(m.Version, needle) {
		return true
	}
	for _, dep := range m.Dependencies {
		if containsFold(dep, needle) {
			return true
		}
	}
	return false
}

// Matches reports whether m satisfies the filter. A version filter also
// accepts semver constraints such as ">=1.2.0 <2.0.0" when the module
// version parses as semver.
func (f SearchFilter) Matches(m Module) bool {
	value := strings.ToLower(strings.TrimSpace(f.Value))
	switch f.Type {
	case FilterStatus:
		return strings.EqualFold(string(m.Status), value)
	case FilterDependency:
		return slices.ContainsFunc(m.Dependencies, func(dep string) bool {
			return strings.EqualFold(dep, value)
		})
	case FilterVersion:
		if containsFold(m.Version, value) {
			return true
		}
		return satisfiesConstraint(m.Version, f.Value)
	case FilterName:
		return containsFold(m.Name, value)
	case FilterDescription:
		return containsFold(m.Description, value)
	default:
		return false
	}
}

func satisfiesConstraint(version, constraint string) bool {
	if version == "" || strings.TrimSpace(constraint) == "" {
		return false
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// containsFold expects needle to be lower case already.
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}

// SetSearchQuery sets the free-text query.
func (s *Store) SetSearchQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = text
}

// SearchQuery returns the free-text query.
func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// SetStatusFilter replaces the status set. No statuses means all.
func (s *Store) SetStatusFilter(statuses ...Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = slices.Clone(statuses)
}

// StatusFilter returns the status set.
func (s *Store) StatusFilter() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.statuses)
}

// AddFilter appends f unless an identical filter is already active.
func (s *Store) AddFilter(f SearchFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.filters, f) {
		return
	}
	s.filters = append(s.filters, f)
}

// RemoveFilter drops every filter with the same type and value as f.
func (s *Store) RemoveFilter(f SearchFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = slices.DeleteFunc(s.filters, func(existing SearchFilter) bool {
		return existing.Type == f.Type && existing.Value == f.Value
	})
}

// ClearFilters drops every structured filter.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = nil
}

// Filters returns the active structured filters.
func (s *Store) Filters() []SearchFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filters)
}

// Filtered returns the modules matching the store's current query, status
// set and filters.
func (s *Store) Filtered() []Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterModules(s.modulesLocked(), s.queryLocked())
}

func (s *Store) queryLocked() Query {
	return Query{
		Text:     s.query,
		Statuses: slices.Clone(s.statuses),
		Filters:  slices.Clone(s.filters),
	}
}
