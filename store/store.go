// Package store selects the persistence backend of a process.
package store

import (
	"context"

	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/store/memory"
	"github.com/warp/evaluation-engine/store/sqlite"
)

// Store is an engine.Store the process owns: it can be wiped by the demo
// endpoints and must be closed on shutdown.
type Store interface {
	engine.Store
	Reset(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open returns a SQLite store at path, or the in-memory store when path
// is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return memory.New(), nil
	}
	return sqlite.New(path)
}
