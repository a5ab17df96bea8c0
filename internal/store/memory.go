package store

import (
	"context"
	"sync"
)

// MemoryJournal keeps entries in process memory. Useful for tests and for inspecting a running
// desktop session.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *MemoryJournal) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries {
		if existing.Tx.ID == e.Tx.ID {
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries in insertion order.
func (m *MemoryJournal) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *MemoryJournal) Close() {}
