// Package store provides persistence backends for exported workflow
// snapshots.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no snapshot exists for a workflow id.
var ErrNotFound = errors.New("snapshot not found")

// Store persists self-contained workflow snapshots as produced by
// Engine.ExportWorkflow. Snapshots are plain nested mappings with
// JSON-shaped values, so any backend that can hold a JSON document works.
//
// Implementations in this package:
//   - MemStore: in-memory, for tests and single-process use
//   - SQLiteStore: single-file database, zero-setup persistence
//   - MySQLStore: shared relational database for multi-process setups
type Store interface {
	// SaveSnapshot persists the snapshot under the workflow id, replacing
	// any previous snapshot for the same id.
	SaveSnapshot(ctx context.Context, workflowID string, snapshot map[string]any) error

	// LoadSnapshot retrieves the snapshot saved for the workflow id.
	// Returns ErrNotFound if none exists.
	LoadSnapshot(ctx context.Context, workflowID string) (map[string]any, error)

	// ListSnapshots returns the workflow ids with a stored snapshot.
	ListSnapshots(ctx context.Context) ([]string, error)

	// DeleteSnapshot removes the snapshot for the workflow id. Deleting a
	// missing snapshot is not an error.
	DeleteSnapshot(ctx context.Context, workflowID string) error

	// Close releases backend resources. The store must not be used after
	// Close returns.
	Close() error
}
