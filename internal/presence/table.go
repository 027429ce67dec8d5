// Package presence tracks which users currently hold a live connection.
package presence

import (
	"sort"
	"sync"
)

// Table maps a user id to at most one connection. A newer connection for the
// same user replaces the older one. Safe for concurrent use.
type Table[C any] struct {
	mu      sync.RWMutex
	entries map[string]entry[C]
}

type entry[C any] struct {
	connID string
	conn   C
}

// NewTable returns an empty table.
func NewTable[C any]() *Table[C] {
	return &Table[C]{entries: make(map[string]entry[C])}
}

// Record registers conn as the live connection of userID, replacing any
// previous entry.
func (t *Table[C]) Record(userID, connID string, conn C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[userID] = entry[C]{connID: connID, conn: conn}
}

// Remove deletes the entry for userID only if it still belongs to connID.
// It reports whether an entry was removed; a disconnect from a connection that
// was already superseded leaves the newer entry in place.
func (t *Table[C]) Remove(userID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.entries[userID]
	if !ok || current.connID != connID {
		return false
	}
	delete(t.entries, userID)
	return true
}

// Lookup returns the connection registered for userID.
func (t *Table[C]) Lookup(userID string) (C, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	current, ok := t.entries[userID]
	return current.conn, ok
}

// OnlineUserIDs returns the registered user ids in ascending order.
func (t *Table[C]) OnlineUserIDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of online users.
func (t *Table[C]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset drops every entry.
func (t *Table[C]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]entry[C])
}
