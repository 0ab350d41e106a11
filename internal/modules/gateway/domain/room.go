package domain

import (
	"strings"
	"time"
)

// RoomType classifies a room by the entity its members gather around.
type RoomType string

const (
	RoomTypeUnknown      RoomType = ""
	RoomTypeUser         RoomType = "user"
	RoomTypeConversation RoomType = "conversation"
	RoomTypePost         RoomType = "post"
	RoomTypeFeed         RoomType = "feed"
	RoomTypeTopic        RoomType = "topic"
)

var allowedRoomTypes = map[string]RoomType{
	string(RoomTypeUser):         RoomTypeUser,
	string(RoomTypeConversation): RoomTypeConversation,
	string(RoomTypePost):         RoomTypePost,
	string(RoomTypeFeed):         RoomTypeFeed,
	string(RoomTypeTopic):        RoomTypeTopic,
}

// NormalizeRoomType returns the canonical RoomType for the given input.
func NormalizeRoomType(raw string) RoomType {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if rt, ok := allowedRoomTypes[trimmed]; ok {
		return rt
	}
	return RoomTypeUnknown
}

// RoomID derives the deterministic room identifier for a type and subject
// key, e.g. RoomID(RoomTypePost, "42") == "post:42".
func RoomID(rt RoomType, key string) string {
	return string(rt) + ":" + strings.TrimSpace(key)
}

// Room groups the connections that receive the same broadcasts. A user stays
// a participant while at least one of their connections is a member, so under
// multi-device usage the two sets shrink at different times.
//
// Rooms are mutated only by the room registry under its lock; other packages
// receive copies via the registry accessors.
type Room struct {
	ID           string
	Type         RoomType
	Namespace    Namespace
	Participants map[string]struct{}
	Members      map[string]struct{}
	// MemberOwner maps each member connection id to the user holding it.
	MemberOwner  map[string]string
	CreatedAt    time.Time
	LastActivity time.Time
	Metadata     map[string]string
	// MessageCount is maintained for conversation rooms only.
	MessageCount int64
	Visible      bool
}

// NewRoom builds an empty room stamped at now.
func NewRoom(rt RoomType, ns Namespace, key string, now time.Time) *Room {
	return &Room{
		ID:           RoomID(rt, key),
		Type:         rt,
		Namespace:    ns,
		Participants: make(map[string]struct{}),
		Members:      make(map[string]struct{}),
		MemberOwner:  make(map[string]string),
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     make(map[string]string),
		Visible:      true,
	}
}

// AddMember registers the connection for the user and reports whether the
// membership is new. Re-joining with the same pair is a no-op success.
func (r *Room) AddMember(userID, connectionID string, now time.Time) bool {
	r.LastActivity = now
	if _, exists := r.Members[connectionID]; exists {
		return false
	}
	r.Members[connectionID] = struct{}{}
	r.MemberOwner[connectionID] = userID
	r.Participants[userID] = struct{}{}
	return true
}

// RemoveMember drops the connection and reports whether it was a member and
// whether the user left the participant set (no other connection of theirs
// remains in the room).
func (r *Room) RemoveMember(connectionID string, now time.Time) (removed, participantGone bool) {
	userID, exists := r.MemberOwner[connectionID]
	if !exists {
		return false, false
	}
	delete(r.Members, connectionID)
	delete(r.MemberOwner, connectionID)
	r.LastActivity = now

	for _, owner := range r.MemberOwner {
		if owner == userID {
			return true, false
		}
	}
	delete(r.Participants, userID)
	return true, true
}

// ConnectionsOf returns the member connection ids held by the given user.
func (r *Room) ConnectionsOf(userID string) []string {
	var ids []string
	for connID, owner := range r.MemberOwner {
		if owner == userID {
			ids = append(ids, connID)
		}
	}
	return ids
}

// Empty reports whether the room has neither members nor participants.
func (r *Room) Empty() bool {
	return len(r.Members) == 0 && len(r.Participants) == 0
}

// MemberIDs returns a copy of the member connection id set.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	return ids
}

// ParticipantIDs returns a copy of the participant user id set.
func (r *Room) ParticipantIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for id := range r.Participants {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy safe to read outside the registry lock.
func (r *Room) Snapshot() Room {
	cp := *r
	cp.Participants = make(map[string]struct{}, len(r.Participants))
	for id := range r.Participants {
		cp.Participants[id] = struct{}{}
	}
	cp.Members = make(map[string]struct{}, len(r.Members))
	for id := range r.Members {
		cp.Members[id] = struct{}{}
	}
	cp.MemberOwner = make(map[string]string, len(r.MemberOwner))
	for id, owner := range r.MemberOwner {
		cp.MemberOwner[id] = owner
	}
	cp.Metadata = make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}
