// Package backend implements the pluggable key→bytes storage contract from
// SPEC_FULL.md §4.1/§6. Grounded on pkg/core/store_init.go's DSN/pragma
// setup for the SQLite-backed implementation, and on the Aman-CERP pack's
// internal/session/storage.go atomic temp-file-then-rename idiom for the
// file-backed implementation.
package backend

import "context"

// Backend is the durable key→bytes contract the engine persists through.
// Save must be atomic: callers never observe a partially-written state.
type Backend interface {
	Load(ctx context.Context) (map[string][]byte, error)
	Save(ctx context.Context, data map[string][]byte) error
	Close() error
}
