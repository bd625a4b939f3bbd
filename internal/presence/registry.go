package presence

import "sync"

// Registry maps each online user to the set of live connections they own.
// A connection id belongs to at most one user; a user with no connections has no entry.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]map[string]struct{} // userID -> connIDs
	owners map[string]string              // connID -> userID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]map[string]struct{}),
		owners: make(map[string]string),
	}
}

// Register adds connID to userID's set. Registering the same pair again is a no-op.
// Registering connID under a different user moves it.
func (r *Registry) Register(connID, userID string) {
	if connID == "" || userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owners[connID]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(connID, prev)
	}
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[connID] = struct{}{}
	r.owners[connID] = userID
}

// Unregister removes connID from userID's set. Unknown pairs are ignored, since
// disconnects may race with or precede authentication.
func (r *Registry) Unregister(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[connID]; !ok || owner != userID {
		return
	}
	r.removeLocked(connID, userID)
}

// Forget removes connID from whichever user owns it.
func (r *Registry) Forget(connID string) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.owners[connID]
	if ok {
		r.removeLocked(connID, userID)
	}
	return userID, ok
}

func (r *Registry) removeLocked(connID, userID string) {
	delete(r.owners, connID)
	set := r.users[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// IsOnline reports whether userID owns at least one registered connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Connections returns a snapshot of userID's connection ids.
func (r *Registry) Connections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// OnlineUsers returns the number of users with at least one connection.
func (r *Registry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
