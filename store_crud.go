package modgraph

import (
	"context"
	"fmt"
	"strings"
)

type mutationOptions struct {
	suppressHistory bool
}

// MutationOption adjusts a single Create, Update or Delete call.
type MutationOption func(*mutationOptions)

// SuppressHistory performs the mutation without recording an UndoCommand.
// Undo and redo replays use it so they never pollute the history.
func SuppressHistory() MutationOption {
	return func(o *mutationOptions) {
		o.suppressHistory = true
	}
}

func resolveMutationOptions(opts []MutationOption) mutationOptions {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Create persists m through the gateway and, once it succeeds, inserts it and
// records a command whose undo deletes it again. An empty name fails with
// ErrValidation before any gateway call.
func (s *Store) Create(ctx context.Context, m Module, opts ...MutationOption) (Module, error) {
	o := resolveMutationOptions(opts)
	if strings.TrimSpace(m.Name) == "" {
		return Module{}, fmt.Errorf("%w: module name is required", ErrValidation)
	}

	created, err := s.gateway.Create(ctx, m.Clone())
	if err != nil {
		return Module{}, s.remoteFailure("create", m.Name, err)
	}
	if created.Name == "" {
		created = m.Clone()
	}
	name := created.Name

	s.mu.Lock()
	s.modules[name] = created.Clone()
	s.version++
	s.mu.Unlock()

	s.logger.Debug("Module created", "module", name, "replay", o.suppressHistory)
	s.emit(ctx, EventTypeModuleCreated, ModuleEventData{Name: name, Module: Ptr(created.Clone()), Replay: o.suppressHistory})

	if !o.suppressHistory {
		snapshot := created.Clone()
		s.history.Execute(s.newCommand(CommandCreate, fmt.Sprintf("Create module %s", name),
			func(ctx context.Context) error {
				return s.Delete(ctx, name, SuppressHistory())
			},
			func(ctx context.Context) error {
				_, err := s.Create(ctx, snapshot, SuppressHistory())
				return err
			},
		))
	}
	return created.Clone(), nil
}

// Update applies patch to the named module. An empty patch fails with
// ErrValidation before any gateway call. Before the gateway call it
// snapshots only the fields patch touches, so the recorded undo restores
// those fields and leaves the rest of the module alone.
func (s *Store) Update(ctx context.Context, name string, patch ModulePatch, opts ...MutationOption) (Module, error) {
	o := resolveMutationOptions(opts)
	if patch.IsEmpty() {
		return Module{}, fmt.Errorf("%w: patch for module %s touches no field", ErrValidation, name)
	}

	s.mu.RLock()
	current, ok := s.modules[name]
	s.mu.RUnlock()
	if !ok {
		return Module{}, notFound(name)
	}

	forward := patch.Clone()
	inverse := forward.Inverse(current)

	updated, err := s.gateway.Update(ctx, name, forward.Clone())
	if err != nil {
		return Module{}, s.remoteFailure("update", name, err)
	}

	s.mu.Lock()
	if updated.Name == "" {
		base, live := s.modules[name]
		if !live {
			base = current
		}
		updated = forward.Apply(base)
	}
	s.modules[name] = updated.Clone()
	s.version++
	s.mu.Unlock()

	s.logger.Debug("Module updated", "module", name, "fields", forward.Fields(), "replay", o.suppressHistory)
	s.emit(ctx, EventTypeModuleUpdated, ModuleEventData{Name: name, Module: Ptr(updated.Clone()), Replay: o.suppressHistory})

	if !o.suppressHistory {
		s.history.Execute(s.newCommand(CommandUpdate,
			fmt.Sprintf("Update %s of module %s", strings.Join(forward.Fields(), ", "), name),
			func(ctx context.Context) error {
				_, err := s.Update(ctx, name, inverse.Clone(), SuppressHistory())
				return err
			},
			func(ctx context.Context) error {
				_, err := s.Update(ctx, name, forward.Clone(), SuppressHistory())
				return err
			},
		))
	}
	return updated.Clone(), nil
}

// Delete removes the named module. The whole entity is snapshotted first so
// the recorded undo can recreate it, and the name is dropped from every
// selection.
func (s *Store) Delete(ctx context.Context, name string, opts ...MutationOption) error {
	o := resolveMutationOptions(opts)

	s.mu.RLock()
	current, ok := s.modules[name]
	s.mu.RUnlock()
	if !ok {
		return notFound(name)
	}
	snapshot := current.Clone()

	if err := s.gateway.Delete(ctx, name); err != nil {
		return s.remoteFailure("delete", name, err)
	}

	s.mu.Lock()
	delete(s.modules, name)
	s.version++
	s.unselectLocked(name)
	if s.pendingSource == name {
		s.pendingSource = ""
	}
	s.mu.Unlock()

	s.logger.Debug("Module deleted", "module", name, "replay", o.suppressHistory)
	s.emit(ctx, EventTypeModuleDeleted, ModuleEventData{Name: name, Replay: o.suppressHistory})

	if !o.suppressHistory {
		s.history.Execute(s.newCommand(CommandDelete, fmt.Sprintf("Delete module %s", name),
			func(ctx context.Context) error {
				_, err := s.Create(ctx, snapshot, SuppressHistory())
				return err
			},
			func(ctx context.Context) error {
				return s.Delete(ctx, name, SuppressHistory())
			},
		))
	}
	return nil
}

func (s *Store) newCommand(typ CommandType, description string, undo, redo func(context.Context) error) *UndoCommand {
	return &UndoCommand{
		ID:          generateID(),
		Type:        typ,
		Description: description,
		Timestamp:   s.now(),
		Undo:        undo,
		Redo:        redo,
	}
}
