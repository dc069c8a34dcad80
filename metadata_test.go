package modgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
)

func TestComputeMetadata(t *testing.T) {
	meta := modgraph.ComputeMetadata([]modgraph.Module{
		mod("Auth", modgraph.StatusImplemented),
		mod("DB", modgraph.StatusImplemented),
		mod("API", modgraph.StatusPlaceholder, "Auth", "DB", "Ghost"),
		mod("Web", modgraph.StatusError, "API"),
	})
	require.Len(t, meta, 4)

	tests := []struct {
		name       string
		level      int
		count      int
		dependents []string
	}{
		{"Auth", 0, 0, []string{"API"}},
		{"DB", 0, 0, []string{"API"}},
		{"API", 1, 3, []string{"Web"}},
		{"Web", 2, 1, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := meta[tt.name]
			assert.Equal(t, tt.name, got.Name)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.count, got.DependencyCount)
			assert.Equal(t, tt.dependents, got.Dependents)
		})
	}
}

func TestComputeMetadata_ToleratesCycles(t *testing.T) {
	meta := modgraph.ComputeMetadata([]modgraph.Module{
		mod("Root", modgraph.StatusImplemented),
		mod("A", modgraph.StatusImplemented, "B", "Root"),
		mod("B", modgraph.StatusImplemented, "A"),
		mod("Leaf", modgraph.StatusImplemented, "A"),
		mod("Side", modgraph.StatusImplemented, "Root"),
	})

	assert.Zero(t, meta["A"].Level)
	assert.Zero(t, meta["B"].Level)
	assert.Zero(t, meta["Leaf"].Level, "modules behind a loop are not levelled")
	assert.Equal(t, 1, meta["Side"].Level)
	assert.Equal(t, []string{"B", "Leaf"}, meta["A"].Dependents)
	assert.Equal(t, []string{"A", "Side"}, meta["Root"].Dependents)
}

func TestComputeMetadata_DoesNotAlias(t *testing.T) {
	input := []modgraph.Module{mod("A", modgraph.StatusImplemented), mod("B", modgraph.StatusImplemented, "A")}
	meta := modgraph.ComputeMetadata(input)

	b := meta["B"]
	b.Dependencies[0] = "changed"
	assert.Equal(t, "A", input[1].Dependencies[0])
	assert.Empty(t, modgraph.ComputeMetadata(nil))
}

func TestStore_MetadataIgnoresFilters(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented), mod("B", modgraph.StatusError, "A"))
	store.SetStatusFilter(modgraph.StatusError)

	meta := store.Metadata()
	require.Len(t, meta, 2)
	assert.Equal(t, []string{"B"}, meta["A"].Dependents)
	assert.Equal(t, 1, meta["B"].Level)
}
