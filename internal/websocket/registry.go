package websocket

import (
	"encoding/json"
	"sync"

	"taskchat/internal/metrics"
	"taskchat/pkg/logger"
)

// Registry maps user ids to their open connections. A user may hold any
// number of connections; a user with none has no entry.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int64]map[*Client]struct{}),
	}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	set, ok := r.users[c.Identity.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.users[c.Identity.UserID] = set
	}
	_, existed := set[c]
	set[c] = struct{}{}
	r.mu.Unlock()

	if !existed {
		metrics.ActiveConnections.Inc()
		logger.Info("User %s (%d) connected, connection %s", c.Identity.Username, c.Identity.UserID, c.ID)
	}
}

// Unregister removes c and reports whether it was registered. Calling it
// again for the same client is a no-op.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	set, ok := r.users[c.Identity.UserID]
	if ok {
		_, ok = set[c]
		delete(set, c)
		if len(set) == 0 {
			delete(r.users, c.Identity.UserID)
		}
	}
	r.mu.Unlock()

	if ok {
		metrics.ActiveConnections.Dec()
		logger.Info("User %s (%d) disconnected, connection %s", c.Identity.Username, c.Identity.UserID, c.ID)
	}
	return ok
}

// SendToUser enqueues payload on every open connection of userID and
// returns how many accepted it. An offline user is not an error.
func (r *Registry) SendToUser(userID int64, payload any) int {
	r.mu.RLock()
	set := r.users[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	data, err := encode(payload)
	if err != nil {
		logger.Error("Error marshaling frame for user %d: %v", userID, err)
		return 0
	}
	return deliver(targets, data)
}

// BroadcastAll enqueues payload on every open connection.
func (r *Registry) BroadcastAll(payload any) int {
	targets := r.Clients()
	if len(targets) == 0 {
		return 0
	}
	data, err := encode(payload)
	if err != nil {
		logger.Error("Error marshaling broadcast frame: %v", err)
		return 0
	}
	return deliver(targets, data)
}

// Clients returns a snapshot of every registered connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.users))
	for _, set := range r.users {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// UserCount returns the number of users with at least one connection.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) ConnectionCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// Close closes every registered connection. Used at shutdown.
func (r *Registry) Close() {
	for _, c := range r.Clients() {
		c.Close()
	}
}

func deliver(targets []*Client, data []byte) int {
	delivered := 0
	for _, c := range targets {
		if c.enqueue(data) {
			delivered++
		}
	}
	return delivered
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
