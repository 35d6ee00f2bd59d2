package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store. Snapshots are kept as their JSON
// encoding so loads return copies decoupled from what the caller saved.
//
// Data is lost when the process exits; use SQLiteStore or MySQLStore when
// persistence across restarts is needed.
type MemStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{snapshots: make(map[string][]byte)}
}

// SaveSnapshot stores the JSON encoding of the snapshot.
func (m *MemStore) SaveSnapshot(_ context.Context, workflowID string, snapshot map[string]any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[workflowID] = data
	return nil
}

// LoadSnapshot decodes and returns the stored snapshot.
func (m *MemStore) LoadSnapshot(_ context.Context, workflowID string) (map[string]any, error) {
	m.mu.RLock()
	data, ok := m.snapshots[workflowID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var snap map[string]any
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns the stored workflow ids in unspecified order.
func (m *MemStore) ListSnapshots(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteSnapshot removes the snapshot if present.
func (m *MemStore) DeleteSnapshot(_ context.Context, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, workflowID)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
