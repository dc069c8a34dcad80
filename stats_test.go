package modgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoCodeAlone/modgraph"
)

func TestComputeStats(t *testing.T) {
	stats := modgraph.ComputeStats([]modgraph.Module{
		mod("A", modgraph.StatusImplemented),
		mod("B", modgraph.StatusImplemented, "A"),
		mod("C", modgraph.StatusError, "A", "B", "Ghost"),
	})

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[modgraph.Status]int{
		modgraph.StatusImplemented: 2,
		modgraph.StatusPlaceholder: 0,
		modgraph.StatusError:       1,
	}, stats.ByStatus)
	assert.Equal(t, 4, stats.DependencyCount)
	assert.Equal(t, 1, stats.DanglingCount)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := modgraph.ComputeStats(nil)
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.ByStatus, 3)
}

func TestStore_StatsIgnoresFilters(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented), mod("B", modgraph.StatusError))
	store.SetStatusFilter(modgraph.StatusError)
	store.SetSearchQuery("B")
	assert.Equal(t, 2, store.Stats().Total)
}
