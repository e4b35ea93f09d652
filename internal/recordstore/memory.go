package recordstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps tables in-process. The mutex guards the map only; it does not
// serialize the Store's load/modify/save cycles.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string][]Row
}

// NewMemoryBackend initializes an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string][]Row)}
}

// Load returns a copy of the table rows.
func (b *MemoryBackend) Load(_ context.Context, table string) ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneRows(b.tables[table]), nil
}

// Save replaces the table with a copy of rows.
func (b *MemoryBackend) Save(_ context.Context, table string, rows []Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(rows) == 0 {
		delete(b.tables, table)
		return nil
	}
	b.tables[table] = cloneRows(rows)
	return nil
}
