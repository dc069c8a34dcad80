package modgraph

import (
	"errors"
	"fmt"
)

// Engine errors
var (
	// Client-side validation errors, raised before any gateway call
	ErrValidation        = errors.New("validation failed")
	ErrInvalidModuleName = errors.New("invalid module name")
	ErrInvalidStatus     = errors.New("invalid module status")

	// Lookup errors
	ErrNotFound = errors.New("module not found")
	ErrConflict = errors.New("module already exists")

	// History errors
	ErrUndoFailed = errors.New("undo failed")
	ErrRedoFailed = errors.New("redo failed")

	// Bulk errors
	ErrBulkPartialFailure = errors.New("bulk operation partially failed")

	// Wiring errors
	ErrGatewayNil                = errors.New("gateway is nil")
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)

// RemoteError wraps a gateway rejection. The store records its message for
// display and hands it back to the caller; history is never written for it.
type RemoteError struct {
	Op   string
	Name string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to %s modules: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s module %q: %v", e.Op, e.Name, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// BulkError summarises a batch in which some per-module calls failed. Only
// counts are reported; the failed names stay in the selection for a retry.
type BulkError struct {
	Op     string
	Total  int
	Failed int
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%d of %d modules failed to %s (%d succeeded)", e.Failed, e.Total, e.Op, e.Total-e.Failed)
}

// Is lets errors.Is(err, ErrBulkPartialFailure) match.
func (e *BulkError) Is(target error) bool {
	return target == ErrBulkPartialFailure
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
