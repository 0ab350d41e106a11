package infrastructure

import (
	"testing"
	"time"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
)

func newDispatcherFixture(t *testing.T) (*Dispatcher, *ConnectionRegistry, *RoomRegistry) {
	t.Helper()
	connections := NewConnectionRegistry()
	rooms := NewRoomRegistry()
	return NewDispatcher(connections, rooms, nil, "instance-a"), connections, rooms
}

func addSession(t *testing.T, r *ConnectionRegistry, id, userID string, ns domain.Namespace) *stubSession {
	t.Helper()
	session := &stubSession{id: id}
	if err := r.Add(domain.NewConnection(id, userID, ns, nil, time.Now()), session); err != nil {
		t.Fatalf("add connection %s: %v", id, err)
	}
	return session
}

func TestDispatcher_EmitToUserOfflineIsNotAnError(t *testing.T) {
	t.Parallel()

	d, _, _ := newDispatcherFixture(t)
	if d.EmitToUser("nobody", domain.NamespaceUnknown, domain.NewEvent("x", domain.NamespaceMessaging, nil)) {
		t.Fatal("emit to an offline user must report false")
	}
}

func TestDispatcher_EmitToUserHitsEveryConnection(t *testing.T) {
	t.Parallel()

	d, connections, _ := newDispatcherFixture(t)
	phone := addSession(t, connections, "phone", "u1", domain.NamespaceMessaging)
	laptop := addSession(t, connections, "laptop", "u1", domain.NamespaceSocial)
	other := addSession(t, connections, "c3", "u2", domain.NamespaceMessaging)

	if !d.EmitToUser("u1", domain.NamespaceUnknown, domain.NewEvent("ping", domain.NamespaceMessaging, nil)) {
		t.Fatal("emit must report success")
	}
	if len(phone.sent) != 1 || len(laptop.sent) != 1 {
		t.Fatalf("both devices must receive: phone=%d laptop=%d", len(phone.sent), len(laptop.sent))
	}
	if len(other.sent) != 0 {
		t.Fatal("other users must not receive a user-scoped emit")
	}

	if !d.EmitToUser("u1", domain.NamespaceSocial, domain.NewEvent("ping", domain.NamespaceSocial, nil)) {
		t.Fatal("filtered emit must report success")
	}
	if len(phone.sent) != 1 || len(laptop.sent) != 2 {
		t.Fatalf("namespace filter broken: phone=%d laptop=%d", len(phone.sent), len(laptop.sent))
	}
}

func TestDispatcher_EmitToRoomUnknownRoom(t *testing.T) {
	t.Parallel()

	d, _, _ := newDispatcherFixture(t)
	if d.EmitToRoom("post:404", domain.NewEvent("x", domain.NamespaceSocial, nil)) {
		t.Fatal("emit to a missing room must report false")
	}
}

func TestDispatcher_PartialFanOutResilience(t *testing.T) {
	t.Parallel()

	d, connections, rooms := newDispatcherFixture(t)
	healthy1 := addSession(t, connections, "c1", "u1", domain.NamespaceSocial)
	dead := addSession(t, connections, "c2", "u2", domain.NamespaceSocial)
	dead.reject = true
	healthy2 := addSession(t, connections, "c3", "u3", domain.NamespaceSocial)

	room := rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	rooms.Join(room.ID, "u1", "c1")
	rooms.Join(room.ID, "u2", "c2")
	rooms.Join(room.ID, "u3", "c3")

	if !d.EmitToRoom(room.ID, domain.NewEvent(domain.EventPostLiked, domain.NamespaceSocial, nil)) {
		t.Fatal("room emit must report success despite one dead member")
	}
	if len(healthy1.sent) != 1 || len(healthy2.sent) != 1 {
		t.Fatalf("healthy members must still receive: %d, %d", len(healthy1.sent), len(healthy2.sent))
	}
	if len(dead.sent) != 0 {
		t.Fatal("dead member must receive nothing")
	}
}

func TestDispatcher_EmitToRoomExceptSkipsSender(t *testing.T) {
	t.Parallel()

	d, connections, rooms := newDispatcherFixture(t)
	sender := addSession(t, connections, "c1", "u1", domain.NamespaceMessaging)
	peer := addSession(t, connections, "c2", "u2", domain.NamespaceMessaging)

	room := rooms.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, "abc")
	rooms.Join(room.ID, "u1", "c1")
	rooms.Join(room.ID, "u2", "c2")

	if !d.EmitToRoomExcept(room.ID, "c1", domain.NewEvent(domain.EventTypingStart, domain.NamespaceMessaging, nil)) {
		t.Fatal("emit must report success")
	}
	if len(sender.sent) != 0 {
		t.Fatal("sender must not hear its own typing broadcast")
	}
	if len(peer.sent) != 1 {
		t.Fatalf("peer must receive, got %d", len(peer.sent))
	}
}

func TestDispatcher_BroadcastToNamespace(t *testing.T) {
	t.Parallel()

	d, connections, _ := newDispatcherFixture(t)
	a := addSession(t, connections, "c1", "u1", domain.NamespacePresence)
	b := addSession(t, connections, "c2", "u2", domain.NamespacePresence)
	outside := addSession(t, connections, "c3", "u3", domain.NamespaceMessaging)

	if reached := d.BroadcastToNamespace(domain.NamespacePresence, domain.NewEvent(domain.EventUserOnline, domain.NamespacePresence, nil)); reached != 2 {
		t.Fatalf("expected 2 sessions reached, got %d", reached)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 || len(outside.sent) != 0 {
		t.Fatalf("namespace scoping broken: %d %d %d", len(a.sent), len(b.sent), len(outside.sent))
	}
}

func TestDispatcher_ApplyRemoteSkipsOwnOrigin(t *testing.T) {
	t.Parallel()

	d, connections, rooms := newDispatcherFixture(t)
	session := addSession(t, connections, "c1", "u1", domain.NamespaceSocial)
	room := rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	rooms.Join(room.ID, "u1", "c1")

	event := domain.NewEvent(domain.EventPostLiked, domain.NamespaceSocial, nil)
	d.ApplyRemote(port.BridgeFrame{Scope: port.BridgeScopeRoom, Target: room.ID, Origin: "instance-a", Event: event})
	if len(session.sent) != 0 {
		t.Fatal("frames published by this instance must not be re-applied")
	}

	d.ApplyRemote(port.BridgeFrame{Scope: port.BridgeScopeRoom, Target: room.ID, Origin: "instance-b", Event: event})
	if len(session.sent) != 1 {
		t.Fatalf("remote frame must be delivered locally, got %d", len(session.sent))
	}
}
