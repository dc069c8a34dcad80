package modgraph

import "slices"

// SetMultiSelect switches between single and multi selection. Switching
// mode always starts from an empty multi-select set.
func (s *Store) SetMultiSelect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiSelect = enabled
	s.selected = make(map[string]struct{})
}

// MultiSelect reports whether multi selection is active.
func (s *Store) MultiSelect() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.multiSelect
}

// Select makes name the single selected module. An empty name clears the
// single selection.
func (s *Store) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.selectedID = ""
		return nil
	}
	if _, ok := s.modules[name]; !ok {
		return notFound(name)
	}
	s.selectedID = name
	return nil
}

// SelectedID returns the single selected module name, or "".
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// ToggleSelection adds name to the multi-select set, or removes it when it is
// already there. It reports whether name is selected afterwards.
func (s *Store) ToggleSelection(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[name]; ok {
		delete(s.selected, name)
		return false, nil
	}
	if _, ok := s.modules[name]; !ok {
		return false, notFound(name)
	}
	s.selected[name] = struct{}{}
	return true, nil
}

// IsSelected reports whether name is in the multi-select set.
func (s *Store) IsSelected(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[name]
	return ok
}

// SelectAllVisible enables multi selection and selects exactly the modules
// in the current filtered projection. Modules hidden by the query or any
// filter are never selected.
func (s *Store) SelectAllVisible() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := FilterModules(s.modulesLocked(), s.queryLocked())
	s.multiSelect = true
	s.selected = make(map[string]struct{}, len(visible))
	names := make([]string, 0, len(visible))
	for _, m := range visible {
		s.selected[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names
}

// ClearSelection empties the multi-select set and the single selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
	s.selectedID = ""
}

// SelectedNames returns the multi-select set in lexical order.
func (s *Store) SelectedNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedNamesLocked()
}

func (s *Store) selectedNamesLocked() []string {
	names := make([]string, 0, len(s.selected))
	for name := range s.selected {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Store) unselectLocked(name string) {
	delete(s.selected, name)
	if s.selectedID == name {
		s.selectedID = ""
	}
}

// pruneSelectionLocked drops every selected name that is no longer live.
func (s *Store) pruneSelectionLocked() {
	for name := range s.selected {
		if _, ok := s.modules[name]; !ok {
			delete(s.selected, name)
		}
	}
	if _, ok := s.modules[s.selectedID]; !ok {
		s.selectedID = ""
	}
	if _, ok := s.modules[s.pendingSource]; !ok {
		s.pendingSource = ""
	}
}
