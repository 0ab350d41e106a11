package domain

import (
	"strings"
	"time"
)

// PresenceStatus is the user-visible availability state.
type PresenceStatus string

const (
	StatusUnknown PresenceStatus = ""
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

var allowedStatuses = map[string]PresenceStatus{
	string(StatusOnline):  StatusOnline,
	string(StatusAway):    StatusAway,
	string(StatusBusy):    StatusBusy,
	string(StatusOffline): StatusOffline,
}

// NormalizePresenceStatus returns the canonical status or StatusUnknown when
// the value is not a member of the enum.
func NormalizePresenceStatus(raw string) PresenceStatus {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := allowedStatuses[trimmed]; ok {
		return s
	}
	return StatusUnknown
}

// Valid reports whether the status is a member of the enum.
func (s PresenceStatus) Valid() bool {
	_, ok := allowedStatuses[string(s)]
	return ok
}

// PresenceRecord tracks one user's availability. LastSeen is meaningful once
// the user has gone offline at least once.
type PresenceRecord struct {
	UserID   string            `json:"userId"`
	Status   PresenceStatus    `json:"status"`
	LastSeen time.Time         `json:"lastSeen"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ActivityRecord captures the user's current focus (viewing a post, typing in
// a conversation, idle). It is overwritten on every update and deleted when
// the user's last connection goes away.
type ActivityRecord struct {
	UserID    string    `json:"userId"`
	Activity  string    `json:"activity"`
	TargetID  string    `json:"targetId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
