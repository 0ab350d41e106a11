package usecase

import (
	"sync"
	"testing"
	"time"

	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/modules/gateway/infrastructure"
)

// recordingDispatcher captures every emission so tests can assert routing
// decisions without a live registry behind the dispatcher.
type recordingDispatcher struct {
	mu        sync.Mutex
	emissions []emission
	roomFails bool
}

type emission struct {
	kind   string
	target string
	except string
	ns     domain.Namespace
	event  *domain.Event
}

func (d *recordingDispatcher) record(e emission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emissions = append(d.emissions, e)
}

func (d *recordingDispatcher) EmitToUser(userID string, ns domain.Namespace, event *domain.Event) bool {
	d.record(emission{kind: "user", target: userID, ns: ns, event: event})
	return true
}

func (d *recordingDispatcher) EmitToRoom(roomID string, event *domain.Event) bool {
	if d.roomFails {
		return false
	}
	d.record(emission{kind: "room", target: roomID, event: event})
	return true
}

func (d *recordingDispatcher) EmitToRoomExcept(roomID, exceptConnectionID string, event *domain.Event) bool {
	if d.roomFails {
		return false
	}
	d.record(emission{kind: "room", target: roomID, except: exceptConnectionID, event: event})
	return true
}

func (d *recordingDispatcher) BroadcastToNamespace(ns domain.Namespace, event *domain.Event) int {
	d.record(emission{kind: "namespace", target: string(ns), ns: ns, event: event})
	return 1
}

func (d *recordingDispatcher) byName(name string) []emission {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []emission
	for _, e := range d.emissions {
		if e.event != nil && e.event.Event == name {
			matched = append(matched, e)
		}
	}
	return matched
}

func (d *recordingDispatcher) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.emissions)
}

// fakeSession is the port.Session double for façade tests.
type fakeSession struct {
	id     string
	sent   []*domain.Event
	closed bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(event *domain.Event) bool {
	s.sent = append(s.sent, event)
	return true
}

func (s *fakeSession) Close() { s.closed = true }

// registerConnection seeds a registry entry directly, for use cases that
// consult the registry without going through the façade.
func registerConnection(t *testing.T, r *infrastructure.ConnectionRegistry, id, userID string, ns domain.Namespace) *fakeSession {
	t.Helper()
	session := &fakeSession{id: id}
	if err := r.Add(domain.NewConnection(id, userID, ns, nil, time.Now()), session); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return session
}
