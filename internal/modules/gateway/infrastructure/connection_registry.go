package infrastructure

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
)

// ErrDuplicateConnection signals a programmer error: transport-assigned
// connection ids are unique for the channel's lifetime, so a second Add with
// the same id means a lifecycle bug upstream.
var ErrDuplicateConnection = errors.New("connection id already registered")

type connectionEntry struct {
	record  domain.Connection
	session port.Session
}

// ConnectionRegistry is the authoritative index of live connections, keyed by
// connection id with reverse indices per user and per namespace.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[string]*connectionEntry
	byUser      map[string]map[string]struct{}
	byNamespace map[domain.Namespace]map[string]struct{}
	now         func() time.Time
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[string]*connectionEntry),
		byUser:      make(map[string]map[string]struct{}),
		byNamespace: make(map[domain.Namespace]map[string]struct{}),
		now:         time.Now,
	}
}

// Add registers the connection under its user and namespace indices.
func (r *ConnectionRegistry) Add(record domain.Connection, session port.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connections[record.ID]; exists {
		return ErrDuplicateConnection
	}
	r.connections[record.ID] = &connectionEntry{record: record, session: session}
	if r.byUser[record.UserID] == nil {
		r.byUser[record.UserID] = make(map[string]struct{})
	}
	r.byUser[record.UserID][record.ID] = struct{}{}
	if r.byNamespace[record.Namespace] == nil {
		r.byNamespace[record.Namespace] = make(map[string]struct{})
	}
	r.byNamespace[record.Namespace][record.ID] = struct{}{}
	slog.Info("connection registered", slog.String("connectionId", record.ID), slog.String("userId", record.UserID), slog.String("namespace", string(record.Namespace)))
	return nil
}

// Remove is idempotent; it returns the removed record so side effects run
// exactly once, and false when the id is unknown.
func (r *ConnectionRegistry) Remove(connectionID string) (port.RemovedConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(connectionID)
}

func (r *ConnectionRegistry) removeLocked(connectionID string) (port.RemovedConnection, bool) {
	entry, exists := r.connections[connectionID]
	if !exists {
		return port.RemovedConnection{}, false
	}
	delete(r.connections, connectionID)
	if conns, ok := r.byUser[entry.record.UserID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.byUser, entry.record.UserID)
		}
	}
	if conns, ok := r.byNamespace[entry.record.Namespace]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.byNamespace, entry.record.Namespace)
		}
	}
	slog.Info("connection removed", slog.String("connectionId", connectionID), slog.String("userId", entry.record.UserID), slog.String("namespace", string(entry.record.Namespace)))
	return port.RemovedConnection{Record: entry.record, Session: entry.session}, true
}

// Get returns a copy of the record; pure lookup, absent ids are not errors.
func (r *ConnectionRegistry) Get(connectionID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, exists := r.connections[connectionID]
	if !exists {
		return domain.Connection{}, false
	}
	return entry.record, true
}

// Session returns the transport handle for the connection.
func (r *ConnectionRegistry) Session(connectionID string) (port.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, exists := r.connections[connectionID]
	if !exists {
		return nil, false
	}
	return entry.session, true
}

// ByUser returns every connection the user holds, optionally filtered by
// namespace (NamespaceUnknown matches all). Empty result, never an error.
func (r *ConnectionRegistry) ByUser(userID string, ns domain.Namespace) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var records []domain.Connection
	for connID := range r.byUser[userID] {
		entry := r.connections[connID]
		if ns != domain.NamespaceUnknown && entry.record.Namespace != ns {
			continue
		}
		records = append(records, entry.record)
	}
	return records
}

// SessionsByUser resolves the user's transport handles for fan-out.
func (r *ConnectionRegistry) SessionsByUser(userID string, ns domain.Namespace) []port.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sessions []port.Session
	for connID := range r.byUser[userID] {
		entry := r.connections[connID]
		if ns != domain.NamespaceUnknown && entry.record.Namespace != ns {
			continue
		}
		sessions = append(sessions, entry.session)
	}
	return sessions
}

// ByNamespace returns every connection registered under the namespace.
func (r *ConnectionRegistry) ByNamespace(ns domain.Namespace) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]domain.Connection, 0, len(r.byNamespace[ns]))
	for connID := range r.byNamespace[ns] {
		records = append(records, r.connections[connID].record)
	}
	return records
}

// SessionsByNamespace resolves every transport handle in the namespace.
func (r *ConnectionRegistry) SessionsByNamespace(ns domain.Namespace) []port.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]port.Session, 0, len(r.byNamespace[ns]))
	for connID := range r.byNamespace[ns] {
		sessions = append(sessions, r.connections[connID].session)
	}
	return sessions
}

// Sessions resolves transport handles for an explicit id set, skipping ids
// that disconnected since the caller captured them.
func (r *ConnectionRegistry) Sessions(connectionIDs []string) []port.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]port.Session, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if entry, ok := r.connections[id]; ok {
			sessions = append(sessions, entry.session)
		}
	}
	return sessions
}

// TouchActivity refreshes the connection's last-activity stamp; it drives
// idle sweeping and reports false for unknown ids.
func (r *ConnectionRegistry) TouchActivity(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.connections[connectionID]
	if !exists {
		return false
	}
	entry.record.LastActivity = r.now()
	return true
}

// SweepIdle removes and returns every connection whose last activity predates
// now minus maxIdle. The registry does not cascade: callers still run room
// and presence cleanup per removed entry.
func (r *ConnectionRegistry) SweepIdle(maxIdle time.Duration) []port.RemovedConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	var removed []port.RemovedConnection
	for connID, entry := range r.connections {
		if entry.record.IdleSince(cutoff) {
			if rm, ok := r.removeLocked(connID); ok {
				removed = append(removed, rm)
			}
		}
	}
	if len(removed) > 0 {
		slog.Info("idle connections swept", slog.Int("count", len(removed)), slog.Duration("maxIdle", maxIdle))
	}
	return removed
}

// IdleUsers returns the users whose every connection has been idle past the
// threshold. A user active on any device is never reported.
func (r *ConnectionRegistry) IdleUsers(threshold time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := r.now().Add(-threshold)
	var users []string
	for userID, conns := range r.byUser {
		allIdle := true
		for connID := range conns {
			if !r.connections[connID].record.IdleSince(cutoff) {
				allIdle = false
				break
			}
		}
		if allIdle {
			users = append(users, userID)
		}
	}
	return users
}

// Len returns the total number of live connections.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// ActiveUsers returns the number of distinct users holding a connection.
func (r *ConnectionRegistry) ActiveUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// CountByNamespace returns per-namespace connection counts.
func (r *ConnectionRegistry) CountByNamespace() map[domain.Namespace]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Namespace]int, len(r.byNamespace))
	for ns, conns := range r.byNamespace {
		counts[ns] = len(conns)
	}
	return counts
}
