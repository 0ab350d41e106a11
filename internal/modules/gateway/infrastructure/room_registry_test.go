package infrastructure

import (
	"testing"

	"sociaWs/internal/modules/gateway/domain"
)

func TestRoomRegistry_CreateRoomIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	first := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	if first.ID != "post:42" {
		t.Fatalf("unexpected room id: %s", first.ID)
	}

	r.Join(first.ID, "u1", "c1")
	again := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	if again.ID != first.ID {
		t.Fatalf("expected same room, got %s", again.ID)
	}
	if len(again.Members) != 1 {
		t.Fatalf("existing room must be returned unchanged, members: %d", len(again.Members))
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", r.Len())
	}
}

func TestRoomRegistry_JoinUnknownRoomFails(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	if r.Join("post:404", "u1", "c1") {
		t.Fatal("join on a room that does not exist must report false")
	}
}

func TestRoomRegistry_JoinIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	room := r.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, "abc")

	if !r.Join(room.ID, "u1", "c1") {
		t.Fatal("join must succeed")
	}
	if !r.Join(room.ID, "u1", "c1") {
		t.Fatal("repeated join must be a no-op success")
	}

	got, ok := r.Get(room.ID)
	if !ok {
		t.Fatal("room missing")
	}
	if len(got.Members) != 1 || len(got.Participants) != 1 {
		t.Fatalf("sets grew on repeated join: members=%d participants=%d", len(got.Members), len(got.Participants))
	}
}

func TestRoomRegistry_ParticipantSurvivesUntilLastConnectionLeaves(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	room := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	r.Join(room.ID, "u1", "c1")
	r.Join(room.ID, "u1", "c2")

	if !r.Leave(room.ID, "u1", "c1") {
		t.Fatal("leave must succeed")
	}
	got, _ := r.Get(room.ID)
	if _, ok := got.Participants["u1"]; !ok {
		t.Fatal("u1 must stay a participant while c2 remains")
	}
	if ids := got.ParticipantIDs(); len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("participant listing = %v", ids)
	}

	if !r.Leave(room.ID, "u1", "c2") {
		t.Fatal("leave must succeed")
	}
	got, _ = r.Get(room.ID)
	if len(got.Participants) != 0 {
		t.Fatalf("expected no participants, got %d", len(got.Participants))
	}
	if len(r.RoomsOf("u1")) != 0 {
		t.Fatalf("user room index not scrubbed: %#v", r.RoomsOf("u1"))
	}
}

func TestRoomRegistry_LeaveUnknownMemberIsNoOp(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	room := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	if r.Leave(room.ID, "u1", "ghost") {
		t.Fatal("leaving without membership must report false")
	}
	if r.Leave("post:404", "u1", "c1") {
		t.Fatal("leaving an unknown room must report false")
	}
}

func TestRoomRegistry_DeleteRoomScrubsIndices(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	room := r.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, "abc")
	r.Join(room.ID, "u1", "c1")
	r.Join(room.ID, "u2", "c2")

	if !r.DeleteRoom(room.ID) {
		t.Fatal("delete must succeed")
	}
	if _, ok := r.Get(room.ID); ok {
		t.Fatal("room still present after delete")
	}
	if len(r.RoomsOf("u1")) != 0 || len(r.RoomsOf("u2")) != 0 {
		t.Fatal("user indices still reference the deleted room")
	}
	if counts := r.CountByNamespace(); counts[domain.NamespaceMessaging] != 0 {
		t.Fatalf("namespace index still counts the room: %#v", counts)
	}
}

func TestRoomRegistry_RemoveConnectionEverywhere(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	a := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "1")
	b := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "2")
	r.Join(a.ID, "u1", "c1")
	r.Join(b.ID, "u1", "c1")
	r.Join(b.ID, "u1", "c2")

	left := r.RemoveConnectionEverywhere("u1", "c1")
	if len(left) != 2 {
		t.Fatalf("expected to leave 2 rooms, got %#v", left)
	}
	for _, roomID := range []string{a.ID, b.ID} {
		members, _ := r.Members(roomID)
		for _, id := range members {
			if id == "c1" {
				t.Fatalf("room %s still holds the removed connection", roomID)
			}
		}
	}
	got, _ := r.Get(b.ID)
	if _, ok := got.Participants["u1"]; !ok {
		t.Fatal("u1 must stay a participant of b via c2")
	}
}

func TestRoomRegistry_RemoveUserEverywhere(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	a := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "1")
	b := r.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, "x")
	r.Join(a.ID, "u1", "c1")
	r.Join(b.ID, "u1", "c1")
	r.Join(b.ID, "u1", "c2")
	r.Join(b.ID, "u2", "c3")

	if count := r.RemoveUserEverywhere("u1"); count != 2 {
		t.Fatalf("expected 2 rooms left, got %d", count)
	}
	got, _ := r.Get(b.ID)
	if _, ok := got.Participants["u1"]; ok {
		t.Fatal("u1 must be gone from b")
	}
	if _, ok := got.Participants["u2"]; !ok {
		t.Fatal("u2 must be untouched")
	}
}

func TestRoomRegistry_CleanupEmptyReclaimsRooms(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	empty := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "42")
	occupied := r.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, "43")
	r.Join(occupied.ID, "u1", "c1")

	if removed := r.CleanupEmpty(); removed != 1 {
		t.Fatalf("expected 1 room reclaimed, got %d", removed)
	}
	if _, ok := r.Get(empty.ID); ok {
		t.Fatal("empty room must be gone")
	}
	if _, ok := r.Get(occupied.ID); !ok {
		t.Fatal("occupied room must survive")
	}
}

func TestRoomRegistry_BumpMessageCount(t *testing.T) {
	t.Parallel()

	r := NewRoomRegistry()
	room := r.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, "abc")

	if seq := r.BumpMessageCount(room.ID); seq != 1 {
		t.Fatalf("expected seq 1, got %d", seq)
	}
	if seq := r.BumpMessageCount(room.ID); seq != 2 {
		t.Fatalf("expected seq 2, got %d", seq)
	}
	if seq := r.BumpMessageCount("conversation:404"); seq != 0 {
		t.Fatalf("unknown room must report 0, got %d", seq)
	}
}
