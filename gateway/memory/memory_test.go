package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
)

func TestGateway_CRUD(t *testing.T) {
	ctx := context.Background()
	g := New(WithModules(modgraph.Module{Name: "A", Status: modgraph.StatusImplemented}))

	created, err := g.Create(ctx, modgraph.Module{Name: "B", Status: modgraph.StatusPlaceholder, Dependencies: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, "B", created.Name)

	_, err = g.Create(ctx, modgraph.Module{Name: "B"})
	assert.ErrorIs(t, err, modgraph.ErrConflict)

	updated, err := g.Update(ctx, "B", modgraph.ModulePatch{Status: modgraph.Ptr(modgraph.StatusError)})
	require.NoError(t, err)
	assert.Equal(t, modgraph.StatusError, updated.Status)
	assert.Equal(t, []string{"A"}, updated.Dependencies)

	_, err = g.Update(ctx, "missing", modgraph.ModulePatch{})
	assert.ErrorIs(t, err, modgraph.ErrNotFound)

	require.NoError(t, g.Delete(ctx, "A"))
	assert.ErrorIs(t, g.Delete(ctx, "A"), modgraph.ErrNotFound)

	all, err := g.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "B")
}

func TestGateway_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	g := New(WithModules(modgraph.Module{Name: "A", Dependencies: []string{"X"}}))

	all, err := g.GetAll(ctx)
	require.NoError(t, err)
	m := all["A"]
	m.Dependencies[0] = "mutated"

	assert.Equal(t, []string{"X"}, g.Snapshot()["A"].Dependencies)
}

func TestGateway_Validation(t *testing.T) {
	ctx := context.Background()
	g := New(WithValidation())

	_, err := g.Create(ctx, modgraph.Module{Name: "1bad", Status: modgraph.StatusImplemented})
	assert.ErrorIs(t, err, modgraph.ErrInvalidModuleName)

	_, err = g.Create(ctx, modgraph.Module{Name: "good", Status: modgraph.StatusImplemented})
	require.NoError(t, err)

	_, err = g.Update(ctx, "good", modgraph.ModulePatch{Status: modgraph.Ptr(modgraph.Status("broken"))})
	assert.ErrorIs(t, err, modgraph.ErrInvalidStatus)
	assert.Equal(t, modgraph.StatusImplemented, g.Snapshot()["good"].Status)
}

func TestGateway_FailureInjection(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	g := New(WithModules(modgraph.Module{Name: "A"}))

	g.FailOn(OpDelete, "A", boom)
	assert.ErrorIs(t, g.Delete(ctx, "A"), boom)
	assert.Contains(t, g.Snapshot(), "A")
	assert.Equal(t, 1, g.Calls(OpDelete))

	g.FailOn(OpGetAll, "", boom)
	_, err := g.GetAll(ctx)
	assert.ErrorIs(t, err, boom)

	g.ClearFailures()
	require.NoError(t, g.Delete(ctx, "A"))
	assert.Equal(t, 2, g.Calls(OpDelete))
}

func TestGateway_DelayHonoursContext(t *testing.T) {
	g := New(WithModules(modgraph.Module{Name: "A"}))
	g.DelayOn("A", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Delete(ctx, "A"), context.DeadlineExceeded)
}
