// Package sqlite provides the public API for the SQLite local store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/internal/sqlite"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend(zap.NewNop())
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".tally",
//	})
//	defer store.Detach()
func NewBackend(logger *zap.Logger) types.LocalStore {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
