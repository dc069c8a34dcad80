package modgraph

import "slices"

// ModuleMetadata is a module together with the fields derived from the
// whole set: who depends on it and how deep it sits.
type ModuleMetadata struct {
	Module
	DependencyCount int `json:"dependency_count"`
	// Dependents lists the live modules naming this one as a dependency,
	// ordered by name. A module listing it twice appears twice.
	Dependents []string `json:"dependents"`
	// Level is 0 for modules without live dependencies and one more than the
	// deepest live dependency otherwise. Modules whose level cannot be
	// settled because a dependency loop feeds them stay at 0.
	Level int `json:"level"`
}

// ComputeMetadata derives ModuleMetadata for every module, keyed by name.
// Dangling dependencies count towards DependencyCount but never produce a
// dependent or raise a level.
func ComputeMetadata(modules []Module) map[string]ModuleMetadata {
	byName := make(map[string]Module, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	names := sortedNames(byName)

	dependents := make(map[string][]string, len(byName))
	pending := make(map[string]int, len(byName))
	for _, name := range names {
		for _, dep := range byName[name].Dependencies {
			if _, ok := byName[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], name)
			pending[name]++
		}
	}

	// Walk the live edges in dependency order; anything left unvisited sits
	// on or behind a loop.
	levels := make(map[string]int, len(byName))
	var queue []string
	for _, name := range names {
		if pending[name] == 0 {
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range dependents[current] {
			levels[dependent] = max(levels[dependent], levels[current]+1)
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	for name, left := range pending {
		if left > 0 {
			levels[name] = 0
		}
	}

	out := make(map[string]ModuleMetadata, len(byName))
	for _, name := range names {
		m := byName[name]
		deps := slices.Clone(dependents[name])
		if deps == nil {
			deps = []string{}
		}
		out[name] = ModuleMetadata{
			Module:          m.Clone(),
			DependencyCount: len(m.Dependencies),
			Dependents:      deps,
			Level:           levels[name],
		}
	}
	return out
}

// Metadata derives metadata for every module in the store, ignoring filters.
func (s *Store) Metadata() map[string]ModuleMetadata {
	return ComputeMetadata(s.Modules())
}
