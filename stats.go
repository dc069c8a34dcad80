package modgraph

// Stats is the dashboard summary of a module set.
type Stats struct {
	Total           int            `json:"total_modules"`
	ByStatus        map[Status]int `json:"by_status"`
	DependencyCount int            `json:"dependency_count"`
	// DanglingCount counts dependency entries naming no module in the set.
	DanglingCount int `json:"dangling_count"`
}

// ComputeStats summarises modules. Every known status is present in
// ByStatus, possibly with zero.
func ComputeStats(modules []Module) Stats {
	stats := Stats{Total: len(modules), ByStatus: make(map[Status]int, 3)}
	for _, status := range AllStatuses() {
		stats.ByStatus[status] = 0
	}

	known := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		known[m.Name] = struct{}{}
	}
	for _, m := range modules {
		stats.ByStatus[m.Status]++
		stats.DependencyCount += len(m.Dependencies)
		for _, dep := range m.Dependencies {
			if _, ok := known[dep]; !ok {
				stats.DanglingCount++
			}
		}
	}
	return stats
}

// Stats summarises every module in the store, ignoring filters.
func (s *Store) Stats() Stats {
	return ComputeStats(s.Modules())
}
