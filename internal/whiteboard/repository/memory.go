package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

type memoryRow struct {
	items     []byte
	version   int64
	updatedAt time.Time
}

// MemoryRepo is an in-process repository used for local development and
// tests. Items are kept as JSON bytes so reads go through the same decode and
// re-sanitize path as the database backends.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*memoryRow
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*memoryRow)}
}

func (m *MemoryRepo) Load(ctx context.Context, documentID string) (*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[documentID]
	if !ok {
		return nil, nil
	}
	return &Row{
		DocumentID: documentID,
		Items:      whiteboard.DecodeItems(r.items),
		Version:    r.version,
		UpdatedAt:  r.updatedAt,
	}, nil
}

func (m *MemoryRepo) CompareAndSwap(ctx context.Context, documentID string, expected int64, items []whiteboard.Item, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b, err := json.Marshal(items)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if r, ok := m.store[documentID]; ok {
		current = r.version
	}
	if current != expected {
		return false, nil
	}
	m.store[documentID] = &memoryRow{items: b, version: expected + 1, updatedAt: at}
	return true, nil
}

// PutRaw stores arbitrary JSON as a document's items, bypassing validation.
// It exists to simulate rows written before the current sanitizer.
func (m *MemoryRepo) PutRaw(documentID string, itemsJSON []byte, version int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[documentID] = &memoryRow{items: itemsJSON, version: version, updatedAt: at}
}
