package modgraph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultHistoryLimit is the number of undo entries kept before the oldest
// is evicted.
const DefaultHistoryLimit = 50

// CommandType classifies an UndoCommand.
type CommandType string

const (
	CommandCreate     CommandType = "create"
	CommandUpdate     CommandType = "update"
	CommandDelete     CommandType = "delete"
	CommandBulkUpdate CommandType = "bulk_update"
	CommandBulkDelete CommandType = "bulk_delete"
)

// UndoCommand pairs a forward mutation that has already happened with its
// asynchronous inverse. Undo and Redo re-enter the store primitives with
// history suppressed, so replaying never records a new command.
type UndoCommand struct {
	ID          string
	Type        CommandType
	Description string
	Timestamp   time.Time
	Undo        func(ctx context.Context) error
	Redo        func(ctx context.Context) error
}

// CommandInfo is the read-only view of a history entry.
type CommandInfo struct {
	ID          string      `json:"id"`
	Type        CommandType `json:"type"`
	Description string      `json:"description"`
	Timestamp   time.Time   `json:"timestamp"`
}

func (c *UndoCommand) info() CommandInfo {
	return CommandInfo{ID: c.ID, Type: c.Type, Description: c.Description, Timestamp: c.Timestamp}
}

// History keeps bounded undo and redo stacks with linear semantics: executing
// a new command discards the redo stack.
type History struct {
	limit int

	mu   sync.Mutex
	undo []*UndoCommand
	redo []*UndoCommand

	// replay serializes Undo and Redo so a failed thunk can put its command
	// back exactly where it came from.
	replay sync.Mutex
}

// NewHistory creates a History holding at most limit entries per stack.
// A non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Limit returns the per-stack bound.
func (h *History) Limit() int {
	return h.limit
}

// Execute records an already performed command and clears the redo stack.
func (h *History) Execute(cmd *UndoCommand) {
	if cmd == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = pushBounded(h.undo, cmd, h.limit)
	h.redo = nil
}

// Undo reverts the most recent command. It returns nil, nil when there is
// nothing to undo. If the inverse fails the command stays on the undo stack
// and the error is returned.
func (h *History) Undo(ctx context.Context) (*UndoCommand, error) {
	h.replay.Lock()
	defer h.replay.Unlock()

	cmd := h.pop(&h.undo)
	if cmd == nil {
		return nil, nil
	}
	if err := cmd.Undo(ctx); err != nil {
		h.push(&h.undo, cmd)
		return nil, fmt.Errorf("%w: %s: %w", ErrUndoFailed, cmd.Description, err)
	}
	h.push(&h.redo, cmd)
	return cmd, nil
}

// Redo re-applies the most recently undone command. It mirrors Undo.
func (h *History) Redo(ctx context.Context) (*UndoCommand, error) {
	h.replay.Lock()
	defer h.replay.Unlock()

	cmd := h.pop(&h.redo)
	if cmd == nil {
		return nil, nil
	}
	if err := cmd.Redo(ctx); err != nil {
		h.push(&h.redo, cmd)
		return nil, fmt.Errorf("%w: %s: %w", ErrRedoFailed, cmd.Description, err)
	}
	h.push(&h.undo, cmd)
	return cmd, nil
}

// CanUndo reports whether the undo stack is non-empty.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// UndoEntries lists the undo stack, most recent last.
func (h *History) UndoEntries() []CommandInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undo)
}

// RedoEntries lists the redo stack, next to redo last.
func (h *History) RedoEntries() []CommandInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redo)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
}

func (h *History) pop(stack *[]*UndoCommand) *UndoCommand {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(*stack)
	if n == 0 {
		return nil
	}
	cmd := (*stack)[n-1]
	(*stack)[n-1] = nil
	*stack = (*stack)[:n-1]
	return cmd
}

func (h *History) push(stack *[]*UndoCommand, cmd *UndoCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*stack = pushBounded(*stack, cmd, h.limit)
}

// pushBounded appends cmd and evicts from the bottom once limit is exceeded.
// Evicted entries are gone for good.
func pushBounded(stack []*UndoCommand, cmd *UndoCommand, limit int) []*UndoCommand {
	stack = append(stack, cmd)
	if over := len(stack) - limit; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func infos(stack []*UndoCommand) []CommandInfo {
	out := make([]CommandInfo, 0, len(stack))
	for _, cmd := range stack {
		out = append(out, cmd.info())
	}
	return out
}
