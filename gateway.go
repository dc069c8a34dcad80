package modgraph

import "context"

// Gateway performs persisted reads and writes on behalf of the Store. The
// Store awaits every call and only touches local state after it succeeds.
//
// Implementations report a missing module with an error wrapping ErrNotFound,
// a name clash with ErrConflict and a rejected payload with ErrValidation.
type Gateway interface {
	// GetAll returns every persisted module keyed by name.
	GetAll(ctx context.Context) (map[string]Module, error)

	// Create persists a new module and returns the stored value.
	Create(ctx context.Context, m Module) (Module, error)

	// Update applies patch to the named module and returns the stored value.
	Update(ctx context.Context, name string, patch ModulePatch) (Module, error)

	// Delete removes the named module.
	Delete(ctx context.Context, name string) error
}
