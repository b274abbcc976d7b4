package presence

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each online user to the handle of their live connection.
// One entry per user: a newer connection replaces the older one.
// State is in-memory only and lost on restart.
type Registry struct {
	mu    sync.RWMutex
	users map[uint]string
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[uint]string)}
}

// Register records handle as userID's live connection, replacing any prior
// entry.
func (r *Registry) Register(userID uint, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = handle
}

// Unregister removes userID. Unknown users are ignored.
func (r *Registry) Unregister(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

// Release removes userID only while handle still owns the entry, and
// reports whether it did. A late disconnect from a replaced connection is
// a no-op.
func (r *Registry) Release(userID uint, handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.users[userID]; ok && current == handle {
		delete(r.users, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Handle returns the connection handle registered for userID.
func (r *Registry) Handle(userID uint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.users[userID]
	return h, ok
}

// ListOnline returns the online user ids in ascending order.
func (r *Registry) ListOnline() []uint {
	r.mu.RLock()
	ids := lo.Keys(r.users)
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
