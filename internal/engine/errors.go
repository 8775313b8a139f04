// Package engine implements the vector store engine (C9): volume
// lifecycle, all indexes, access stats, dedup policy, the write-lock/
// save-chain concurrency protocol, and the state machine from
// SPEC_FULL.md §4.9. Grounded on pkg/core/store.go's SQLiteStore shape
// (sync.RWMutex guard, closed-flag check at the top of every method,
// wrapError on every returned error, double-checked-locking for lazy
// state) and internal/async/indexer.go's stop/done channel pattern from
// the Aman-CERP pack, reused for the flush timer.
package engine

import (
	"errors"
	"fmt"
)

// Sentinel error kinds from SPEC_FULL.md §7, following errors.go's
// errors.New + StoreError{Op, Err} idiom from the teacher.
var (
	ErrNotLoaded      = errors.New("engine: store not loaded")
	ErrEmptyText      = errors.New("engine: volume text is empty")
	ErrEmptyEmbedding = errors.New("engine: volume embedding is empty")
	ErrDuplicate      = errors.New("engine: duplicate volume")
	ErrCorruption     = errors.New("engine: backend or codec corruption")
	ErrRegexRejected  = errors.New("engine: regex pattern rejected")
	ErrNotFound       = errors.New("engine: volume not found")
	ErrClosed         = errors.New("engine: store is closed")
)

// StoreError wraps an error with the operation that produced it, mirroring
// the teacher's errors.go StoreError.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("engine: %v", e.Err)
	}
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return errors.Is(e.Err, target) }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
