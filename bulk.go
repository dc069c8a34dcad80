package modgraph

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// BulkResult summarises a batch. FailedNames is sorted and matches the names
// left in the selection.
type BulkResult struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	FailedNames []string `json:"failed_names,omitempty"`
}

// BulkUpdateStatus sets status on every selected module. Each success goes
// through Update and records its own undo command.
func (s *Store) BulkUpdateStatus(ctx context.Context, status Status) (BulkResult, error) {
	if !status.Valid() {
		return BulkResult{}, fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidStatus, status)
	}
	return s.runBulk(ctx, "update", func(ctx context.Context, name string) error {
		_, err := s.Update(ctx, name, ModulePatch{Status: Ptr(status)})
		return err
	})
}

// BulkDeleteSelected deletes every selected module.
func (s *Store) BulkDeleteSelected(ctx context.Context) (BulkResult, error) {
	return s.runBulk(ctx, "delete", func(ctx context.Context, name string) error {
		return s.Delete(ctx, name)
	})
}

// runBulk calls fn once per selected name, all at once, and waits for every
// call to settle. Successes leave the selection, failures stay in it. The
// selection and multi-select mode are only reset when nothing failed.
func (s *Store) runBulk(ctx context.Context, op string, fn func(context.Context, string) error) (BulkResult, error) {
	s.mu.RLock()
	targets := s.selectedNamesLocked()
	s.mu.RUnlock()

	result := BulkResult{Total: len(targets)}
	if len(targets) == 0 {
		return result, nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for _, name := range targets {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := fn(ctx, name); err != nil {
				s.logger.Debug("Bulk item failed", "op", op, "module", name, "error", err)
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
				return
			}
			s.mu.Lock()
			delete(s.selected, name)
			s.mu.Unlock()
		}(name)
	}
	wg.Wait()

	slices.Sort(failed)
	result.Failed = len(failed)
	result.Succeeded = result.Total - result.Failed
	result.FailedNames = failed

	s.emit(ctx, EventTypeBulkCompleted, map[string]any{
		"op":        op,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})

	if result.Failed == 0 {
		s.mu.Lock()
		s.selected = make(map[string]struct{})
		s.multiSelect = false
		s.mu.Unlock()
		s.logger.Info("Bulk operation completed", "op", op, "count", result.Total)
		return result, nil
	}

	bulkErr := &BulkError{Op: op, Total: result.Total, Failed: result.Failed}
	s.setError(bulkErr.Error())
	s.logger.Warn("Bulk operation partially failed", "op", op, "total", result.Total, "failed", result.Failed)
	return result, bulkErr
}
