package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
)

// PresenceTracker maintains per-user availability and current-focus records.
// It consumes connect/disconnect signals from the gateway and produces
// status-change events through the dispatcher; it never reaches into the
// registries itself.
type PresenceTracker struct {
	mu         sync.Mutex
	records    map[string]*domain.PresenceRecord
	activities map[string]*domain.ActivityRecord
	dispatcher port.Dispatcher
	retention  time.Duration
	now        func() time.Time
}

// NewPresenceTracker builds a tracker whose offline records are purged after
// the retention window by CleanupStale.
func NewPresenceTracker(dispatcher port.Dispatcher, retention time.Duration) *PresenceTracker {
	return &PresenceTracker{
		records:    make(map[string]*domain.PresenceRecord),
		activities: make(map[string]*domain.ActivityRecord),
		dispatcher: dispatcher,
		retention:  retention,
		now:        time.Now,
	}
}

// HandleConnect records the transition to online when a user's first
// connection arrives and announces it.
func (t *PresenceTracker) HandleConnect(userID string, metadata map[string]string) {
	t.mu.Lock()
	record, exists := t.records[userID]
	if !exists {
		record = &domain.PresenceRecord{UserID: userID}
		t.records[userID] = record
	}
	previous := record.Status
	record.Status = domain.StatusOnline
	record.Metadata = metadata
	snapshot := *record
	t.mu.Unlock()

	if previous != domain.StatusOnline {
		t.announce(snapshot)
	}
}

// HandleDisconnect records the transition to offline when a user's last
// connection goes away: stamps lastSeen, clears the activity record, emits.
func (t *PresenceTracker) HandleDisconnect(userID string) {
	t.mu.Lock()
	record, exists := t.records[userID]
	if !exists {
		t.mu.Unlock()
		return
	}
	record.Status = domain.StatusOffline
	record.LastSeen = t.now()
	delete(t.activities, userID)
	snapshot := *record
	t.mu.Unlock()

	t.announce(snapshot)
}

// UpdateStatus applies an explicit status request. Repeating the stored
// status is suppressed so duplicate client pings cannot cause event storms.
// Returns false for values outside the enum.
func (t *PresenceTracker) UpdateStatus(userID string, status domain.PresenceStatus) bool {
	if !status.Valid() {
		return false
	}
	t.mu.Lock()
	record, exists := t.records[userID]
	if !exists {
		record = &domain.PresenceRecord{UserID: userID}
		t.records[userID] = record
	}
	if record.Status == status {
		t.mu.Unlock()
		return true
	}
	record.Status = status
	if status == domain.StatusOffline {
		record.LastSeen = t.now()
	}
	snapshot := *record
	t.mu.Unlock()

	t.announce(snapshot)
	return true
}

// SetAway marks idle users away. Only the online state is overridden; busy
// and offline stay as they are.
func (t *PresenceTracker) SetAway(userID string) {
	t.mu.Lock()
	record, exists := t.records[userID]
	if !exists || record.Status != domain.StatusOnline {
		t.mu.Unlock()
		return
	}
	record.Status = domain.StatusAway
	snapshot := *record
	t.mu.Unlock()

	t.announce(snapshot)
}

// UpdateActivity overwrites the user's focus record and broadcasts a
// lightweight presence update to the user's contacts room. Activity never
// changes online/offline status.
func (t *PresenceTracker) UpdateActivity(userID, activity, targetID string) {
	t.mu.Lock()
	record := &domain.ActivityRecord{
		UserID:    userID,
		Activity:  activity,
		TargetID:  targetID,
		UpdatedAt: t.now(),
	}
	t.activities[userID] = record
	snapshot := *record
	t.mu.Unlock()

	t.dispatcher.EmitToRoom(
		domain.RoomID(domain.RoomTypeUser, userID),
		domain.NewEvent(domain.EventPresenceUpdated, domain.NamespacePresence, snapshot),
	)
}

// Get returns the user's presence record.
func (t *PresenceTracker) Get(userID string) (domain.PresenceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, exists := t.records[userID]
	if !exists {
		return domain.PresenceRecord{}, false
	}
	return *record, true
}

// Activity returns the user's current focus record.
func (t *PresenceTracker) Activity(userID string) (domain.ActivityRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, exists := t.activities[userID]
	if !exists {
		return domain.ActivityRecord{}, false
	}
	return *record, true
}

// OnlineUsers lists every user currently online, away or busy.
func (t *PresenceTracker) OnlineUsers() []domain.PresenceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.FilterMap(lo.Values(t.records), func(r *domain.PresenceRecord, _ int) (domain.PresenceRecord, bool) {
		return *r, r.Status != domain.StatusOffline && r.Status != domain.StatusUnknown
	})
}

// CleanupStale purges presence records for users offline longer than the
// retention window, bounding memory growth from one-shot visitors.
func (t *PresenceTracker) CleanupStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.retention)
	removed := 0
	for userID, record := range t.records {
		if record.Status == domain.StatusOffline && record.LastSeen.Before(cutoff) {
			delete(t.records, userID)
			delete(t.activities, userID)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("stale presence records purged", slog.Int("count", removed))
	}
	return removed
}

func (t *PresenceTracker) announce(record domain.PresenceRecord) {
	name := domain.EventUserStatusChange
	switch record.Status {
	case domain.StatusOnline:
		name = domain.EventUserOnline
	case domain.StatusOffline:
		name = domain.EventUserOffline
	}
	event := domain.NewEvent(name, domain.NamespacePresence, record)
	t.dispatcher.BroadcastToNamespace(domain.NamespacePresence, event)
	t.dispatcher.EmitToRoom(domain.RoomID(domain.RoomTypeUser, record.UserID), event)
}
