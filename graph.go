package modgraph

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Node is one visible module in the rendered graph.
type Node struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status Status `json:"group"`
	Title  string `json:"title"`
	// Missing lists dependency names with no live module behind them.
	Missing []string `json:"missing,omitempty"`
}

// Edge points from a dependency to the module that depends on it.
type Edge struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the render-ready projection of the store.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildGraph returns one node per module whose status is in statuses (all
// modules when statuses is empty) and one edge per dependency entry of a
// visible module, provided the dependency names a module in the full set.
// Dangling dependencies produce no edge. Repeated entries produce repeated
// edges and cycles are rendered as they are.
func BuildGraph(modules []Module, statuses []Status) Graph {
	known := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		known[m.Name] = struct{}{}
	}

	ordered := slices.Clone(modules)
	slices.SortFunc(ordered, func(a, b Module) int { return strings.Compare(a.Name, b.Name) })

	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, m := range ordered {
		if len(statuses) > 0 && !slices.Contains(statuses, m.Status) {
			continue
		}
		node := Node{ID: m.Name, Label: m.Name, Status: m.Status, Title: nodeTitle(m)}
		for i, dep := range m.Dependencies {
			if _, ok := known[dep]; !ok {
				node.Missing = append(node.Missing, dep)
				continue
			}
			g.Edges = append(g.Edges, Edge{
				ID:   fmt.Sprintf("%s->%s:%d", dep, m.Name, i),
				From: dep,
				To:   m.Name,
			})
		}
		g.Nodes = append(g.Nodes, node)
	}
	return g
}

func nodeTitle(m Module) string {
	lines := []string{m.Name, "Status: " + string(m.Status)}
	if m.Version != "" {
		lines = append(lines, "Version: "+m.Version)
	}
	if m.Description != "" {
		lines = append(lines, m.Description)
	}
	if len(m.Dependencies) > 0 {
		lines = append(lines, "Dependencies: "+strings.Join(m.Dependencies, ", "))
	}
	return strings.Join(lines, "\n")
}

// HasEdge reports whether g holds at least one edge from -> to.
func (g Graph) HasEdge(from, to string) bool {
	return slices.ContainsFunc(g.Edges, func(e Edge) bool { return e.From == from && e.To == to })
}

// HasNode reports whether g holds a node for name.
func (g Graph) HasNode(name string) bool {
	return slices.ContainsFunc(g.Nodes, func(n Node) bool { return n.ID == name })
}

// Graph projects the store through its status filter only. The text query
// and structured filters do not hide nodes.
func (s *Store) Graph() Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildGraph(s.modulesLocked(), s.statuses)
}

// SetDependencyMode turns the two-click connect protocol on or off. Leaving
// the mode drops any pending source.
func (s *Store) SetDependencyMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependencyMode = enabled
	if !enabled {
		s.pendingSource = ""
	}
}

// DependencyMode reports whether dependency mode is active.
func (s *Store) DependencyMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dependencyMode
}

// PendingSource returns the node picked by the first click, or "".
func (s *Store) PendingSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingSource
}

// ClickNode handles a click on a graph node.
//
// Outside dependency mode it selects the node, or toggles it when multi
// selection is on. In dependency mode the first click records the pending
// source, a click on a different node appends the source to that node's
// dependencies through Update, and a second click on the source cancels.
// connected reports whether a dependency was appended.
func (s *Store) ClickNode(ctx context.Context, name string) (connected bool, err error) {
	s.mu.Lock()
	if _, ok := s.modules[name]; !ok {
		s.mu.Unlock()
		return false, notFound(name)
	}

	if !s.dependencyMode {
		multi := s.multiSelect
		s.mu.Unlock()
		if multi {
			_, err := s.ToggleSelection(name)
			return false, err
		}
		return false, s.Select(name)
	}

	source := s.pendingSource
	switch source {
	case "":
		s.pendingSource = name
		s.mu.Unlock()
		return false, nil
	case name:
		s.pendingSource = ""
		s.mu.Unlock()
		return false, nil
	}
	s.pendingSource = ""
	deps := append(cloneStrings(s.modules[name].Dependencies), source)
	s.mu.Unlock()

	if _, err := s.Update(ctx, name, ModulePatch{Dependencies: &deps}); err != nil {
		return false, err
	}
	s.logger.Debug("Dependency connected", "from", source, "to", name)
	return true, nil
}
