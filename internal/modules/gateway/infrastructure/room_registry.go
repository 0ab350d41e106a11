package infrastructure

import (
	"log/slog"
	"sync"
	"time"

	"sociaWs/internal/modules/gateway/domain"
)

// RoomRegistry owns every room plus the reverse indices (user → rooms,
// connection → rooms, namespace → rooms) needed for cascaded cleanup. It
// stores connection ids opaquely; connection lifecycle belongs to the
// connection registry.
type RoomRegistry struct {
	mu           sync.RWMutex
	rooms        map[string]*domain.Room
	byUser       map[string]map[string]struct{}
	byConnection map[string]map[string]struct{}
	byNamespace  map[domain.Namespace]map[string]struct{}
	now          func() time.Time
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:        make(map[string]*domain.Room),
		byUser:       make(map[string]map[string]struct{}),
		byConnection: make(map[string]map[string]struct{}),
		byNamespace:  make(map[domain.Namespace]map[string]struct{}),
		now:          time.Now,
	}
}

// CreateRoom derives the room id from (type, key) and returns the existing
// room unchanged when one is already registered: creation is idempotent, not
// an error.
func (r *RoomRegistry) CreateRoom(rt domain.RoomType, ns domain.Namespace, key string) domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := domain.RoomID(rt, key)
	if existing, ok := r.rooms[id]; ok {
		return existing.Snapshot()
	}
	room := domain.NewRoom(rt, ns, key, r.now())
	r.rooms[id] = room
	if r.byNamespace[ns] == nil {
		r.byNamespace[ns] = make(map[string]struct{})
	}
	r.byNamespace[ns][id] = struct{}{}
	slog.Info("room created", slog.String("roomId", id), slog.String("type", string(rt)), slog.String("namespace", string(ns)))
	return room.Snapshot()
}

// Join adds the connection to the member set and the user to the participant
// set. False when the room does not exist; re-joining the same pair is a
// no-op success.
func (r *RoomRegistry) Join(roomID, userID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return false
	}
	if room.AddMember(userID, connectionID, r.now()) {
		if r.byUser[userID] == nil {
			r.byUser[userID] = make(map[string]struct{})
		}
		r.byUser[userID][roomID] = struct{}{}
		if r.byConnection[connectionID] == nil {
			r.byConnection[connectionID] = make(map[string]struct{})
		}
		r.byConnection[connectionID][roomID] = struct{}{}
		slog.Debug("room join", slog.String("roomId", roomID), slog.String("userId", userID), slog.String("connectionId", connectionID))
	}
	return true
}

// Leave removes the connection from the member set; the user leaves the
// participant set only once no other member connection of theirs remains.
func (r *RoomRegistry) Leave(roomID, userID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(roomID, userID, connectionID)
}

func (r *RoomRegistry) leaveLocked(roomID, userID, connectionID string) bool {
	room, exists := r.rooms[roomID]
	if !exists {
		return false
	}
	removed, participantGone := room.RemoveMember(connectionID, r.now())
	if !removed {
		return false
	}
	r.dropConnectionIndex(connectionID, roomID)
	if participantGone {
		r.dropUserIndex(userID, roomID)
	}
	slog.Debug("room leave", slog.String("roomId", roomID), slog.String("userId", userID), slog.String("connectionId", connectionID), slog.Bool("participantGone", participantGone))
	return true
}

// DeleteRoom removes the room and scrubs every reverse index entry pointing
// to it. Active members are detached without notification; telling clients is
// the caller's business.
func (r *RoomRegistry) DeleteRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(roomID)
}

func (r *RoomRegistry) deleteLocked(roomID string) bool {
	room, exists := r.rooms[roomID]
	if !exists {
		return false
	}
	for connID := range room.Members {
		r.dropConnectionIndex(connID, roomID)
	}
	for userID := range room.Participants {
		r.dropUserIndex(userID, roomID)
	}
	if ids, ok := r.byNamespace[room.Namespace]; ok {
		delete(ids, roomID)
		if len(ids) == 0 {
			delete(r.byNamespace, room.Namespace)
		}
	}
	delete(r.rooms, roomID)
	slog.Info("room deleted", slog.String("roomId", roomID), slog.String("type", string(room.Type)))
	return true
}

// RemoveConnectionEverywhere scrubs the connection id from every room it is a
// member of. Mandatory after a hard disconnect so no room holds a dangling
// member id. Returns the rooms left.
func (r *RoomRegistry) RemoveConnectionEverywhere(userID, connectionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var left []string
	for roomID := range r.byConnection[connectionID] {
		if r.leaveLocked(roomID, userID, connectionID) {
			left = append(left, roomID)
		}
	}
	return left
}

// RemoveUserEverywhere walks the user's room set and leaves each with every
// connection they hold there; used when a user's last connection goes away.
// Returns the number of rooms left.
func (r *RoomRegistry) RemoveUserEverywhere(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for roomID := range r.byUser[userID] {
		room, exists := r.rooms[roomID]
		if !exists {
			continue
		}
		for _, connID := range room.ConnectionsOf(userID) {
			r.leaveLocked(roomID, userID, connID)
		}
		count++
	}
	return count
}

// CleanupEmpty deletes every room with zero members and zero participants,
// returning the count removed for observability.
func (r *RoomRegistry) CleanupEmpty() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for roomID, room := range r.rooms {
		if room.Empty() {
			if r.deleteLocked(roomID) {
				removed++
			}
		}
	}
	if removed > 0 {
		slog.Info("empty rooms reclaimed", slog.Int("count", removed))
	}
	return removed
}

// Get returns a snapshot of the room; pure lookup, absence is not an error.
func (r *RoomRegistry) Get(roomID string) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return domain.Room{}, false
	}
	return room.Snapshot(), true
}

// Members returns the member connection ids of the room.
func (r *RoomRegistry) Members(roomID string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return nil, false
	}
	return room.MemberIDs(), true
}

// RoomsOf returns the ids of every room the user participates in.
func (r *RoomRegistry) RoomsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byUser[userID]))
	for roomID := range r.byUser[userID] {
		ids = append(ids, roomID)
	}
	return ids
}

// BumpMessageCount increments the conversation counter and refreshes the
// room's last activity. Zero when the room is unknown.
func (r *RoomRegistry) BumpMessageCount(roomID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return 0
	}
	room.MessageCount++
	room.LastActivity = r.now()
	return room.MessageCount
}

// Len returns the total number of rooms.
func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CountByType returns per-type room counts.
func (r *RoomRegistry) CountByType() map[domain.RoomType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.RoomType]int)
	for _, room := range r.rooms {
		counts[room.Type]++
	}
	return counts
}

// CountByNamespace returns per-namespace room counts.
func (r *RoomRegistry) CountByNamespace() map[domain.Namespace]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Namespace]int, len(r.byNamespace))
	for ns, ids := range r.byNamespace {
		counts[ns] = len(ids)
	}
	return counts
}

func (r *RoomRegistry) dropUserIndex(userID, roomID string) {
	if ids, ok := r.byUser[userID]; ok {
		delete(ids, roomID)
		if len(ids) == 0 {
			delete(r.byUser, userID)
		}
	}
}

func (r *RoomRegistry) dropConnectionIndex(connectionID, roomID string) {
	if ids, ok := r.byConnection[connectionID]; ok {
		delete(ids, roomID)
		if len(ids) == 0 {
			delete(r.byConnection, connectionID)
		}
	}
}
