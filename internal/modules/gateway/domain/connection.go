package domain

import "time"

// Connection describes one live transport channel for a user. The record is
// owned by the connection registry; everything else reads copies.
type Connection struct {
	ID           string
	UserID       string
	Namespace    Namespace
	ConnectedAt  time.Time
	LastActivity time.Time
	Metadata     map[string]string
}

// NewConnection builds a connection record stamped at now.
func NewConnection(id, userID string, ns Namespace, metadata map[string]string, now time.Time) Connection {
	return Connection{
		ID:           id,
		UserID:       userID,
		Namespace:    ns,
		ConnectedAt:  now,
		LastActivity: now,
		Metadata:     metadata,
	}
}

// IdleSince reports whether the connection saw no activity after the cutoff.
func (c Connection) IdleSince(cutoff time.Time) bool {
	return c.LastActivity.Before(cutoff)
}
