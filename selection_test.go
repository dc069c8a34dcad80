package modgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
)

func TestStore_Select(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented))

	require.NoError(t, store.Select("A"))
	assert.Equal(t, "A", store.SelectedID())
	assert.ErrorIs(t, store.Select("ghost"), modgraph.ErrNotFound)
	assert.Equal(t, "A", store.SelectedID())

	require.NoError(t, store.Select(""))
	assert.Empty(t, store.SelectedID())
}

func TestStore_ToggleSelection(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented), mod("B", modgraph.StatusError))
	store.SetMultiSelect(true)

	on, err := store.ToggleSelection("B")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = store.ToggleSelection("A")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"A", "B"}, store.SelectedNames())

	on, err = store.ToggleSelection("A")
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, store.IsSelected("A"))

	_, err = store.ToggleSelection("ghost")
	assert.ErrorIs(t, err, modgraph.ErrNotFound)
}

func TestStore_SetMultiSelectResetsSet(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented))
	store.SetMultiSelect(true)
	_, err := store.ToggleSelection("A")
	require.NoError(t, err)

	store.SetMultiSelect(false)
	assert.False(t, store.MultiSelect())
	assert.Empty(t, store.SelectedNames())
}

func TestStore_SelectAllVisibleHonoursEveryFilter(t *testing.T) {
	a := mod("Alpha", modgraph.StatusImplemented)
	b := mod("Beta", modgraph.StatusPlaceholder, "Alpha")
	c := mod("Gamma", modgraph.StatusPlaceholder)
	store, _ := newLoadedStore(t, a, b, c)

	store.SetStatusFilter(modgraph.StatusPlaceholder)
	assert.Equal(t, []string{"Beta", "Gamma"}, store.SelectAllVisible())
	assert.True(t, store.MultiSelect())

	f, err := modgraph.NewSearchFilter(modgraph.FilterDependency, "alpha")
	require.NoError(t, err)
	store.AddFilter(f)
	assert.Equal(t, []string{"Beta"}, store.SelectAllVisible())
	assert.Equal(t, []string{"Beta"}, store.SelectedNames())

	store.ClearFilters()
	store.SetStatusFilter()
	store.SetSearchQuery("zzz")
	assert.Empty(t, store.SelectAllVisible())
}

func TestStore_ClearSelection(t *testing.T) {
	store, _ := newLoadedStore(t, mod("A", modgraph.StatusImplemented))
	require.NoError(t, store.Select("A"))
	store.SelectAllVisible()

	store.ClearSelection()
	assert.Empty(t, store.SelectedNames())
	assert.Empty(t, store.SelectedID())
}

func TestStore_SelectionFollowsLiveModules(t *testing.T) {
	store, gw := newLoadedStore(t, mod("A", modgraph.StatusImplemented), mod("B", modgraph.StatusImplemented))
	ctx := context.Background()
	store.SelectAllVisible()
	require.NoError(t, store.Select("A"))

	require.NoError(t, store.Delete(ctx, "A"))
	assert.Equal(t, []string{"B"}, store.SelectedNames())
	assert.Empty(t, store.SelectedID())

	// A reload that drops B prunes it too.
	require.NoError(t, gw.Delete(ctx, "B"))
	require.NoError(t, store.Load(ctx))
	assert.Empty(t, store.SelectedNames())
}
