package gateway

import (
	"sync"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Registry tracks the live connections of every user.
// A user has an entry only while at least one connection is registered.
type Registry struct {
	connections map[models.UserID]map[*Connection]bool
	mu          sync.RWMutex
}

// Stats is a point in time view of the registry
type Stats struct {
	TotalConnections int `json:"total_connections"`
	ActiveUsers      int `json:"active_users"`
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[models.UserID]map[*Connection]bool),
	}
}

// Register adds conn to userID's set. Registering the same connection twice is a no-op.
func (r *Registry) Register(userID models.UserID, conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connections[userID] == nil {
		r.connections[userID] = make(map[*Connection]bool)
	}
	r.connections[userID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int64("user_id", userID).
		Int("user_connections", len(r.connections[userID])).
		Msg("connection registered")
}

// Unregister removes conn and reports whether it was registered.
func (r *Registry) Unregister(userID models.UserID, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	connections, exists := r.connections[userID]
	if !exists || !connections[conn] {
		return false
	}

	delete(connections, conn)
	if len(connections) == 0 {
		delete(r.connections, userID)
	}
	return true
}

// ConnectionsFor returns a copy of userID's connections
func (r *Registry) ConnectionsFor(userID models.UserID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := r.connections[userID]
	if len(connections) == 0 {
		return nil
	}

	snapshot := make([]*Connection, 0, len(connections))
	for conn := range connections {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// UserIDs returns every user with at least one connection
func (r *Registry) UserIDs() []models.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIDs := make([]models.UserID, 0, len(r.connections))
	for userID := range r.connections {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// Stats returns statistics about active connections
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{ActiveUsers: len(r.connections)}
	for _, connections := range r.connections {
		stats.TotalConnections += len(connections)
	}
	return stats
}
