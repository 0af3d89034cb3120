package engine

import "sync"

// Arena indexes live engine call objects by call ID. Holding an ID into
// the arena is lookup only and never extends the call object's lifetime:
// the engine removes entries when it releases the underlying object, and
// a lookup after that simply misses.
type Arena struct {
	mu    sync.RWMutex
	calls map[string]Call
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{calls: make(map[string]Call)}
}

// Put records a call object under its ID.
func (a *Arena) Put(c Call) {
	if c == nil {
		return
	}
	a.mu.Lock()
	a.calls[c.ID()] = c
	a.mu.Unlock()
}

// Lookup returns the call object for id, if it is still live.
func (a *Arena) Lookup(id string) (Call, bool) {
	a.mu.RLock()
	c, ok := a.calls[id]
	a.mu.RUnlock()
	return c, ok
}

// Remove drops the entry for id. Removing an unknown ID is a no-op.
func (a *Arena) Remove(id string) {
	a.mu.Lock()
	delete(a.calls, id)
	a.mu.Unlock()
}

// Len returns the number of live entries.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.calls)
}
