package infrastructure

import (
	"errors"
	"testing"
	"time"

	"sociaWs/internal/modules/gateway/domain"
)

type stubSession struct {
	id     string
	sent   []*domain.Event
	reject bool
	closed bool
}

func (s *stubSession) ID() string { return s.id }

func (s *stubSession) Send(event *domain.Event) bool {
	if s.reject {
		return false
	}
	s.sent = append(s.sent, event)
	return true
}

func (s *stubSession) Close() { s.closed = true }

func record(id, userID string, ns domain.Namespace, at time.Time) domain.Connection {
	return domain.NewConnection(id, userID, ns, nil, at)
}

func TestConnectionRegistry_AddRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	now := time.Now()
	if err := r.Add(record("c1", "u1", domain.NamespaceMessaging, now), &stubSession{id: "c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Add(record("c1", "u2", domain.NamespaceSocial, now), &stubSession{id: "c1"})
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Fatalf("expected ErrDuplicateConnection, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 connection, got %d", r.Len())
	}
}

func TestConnectionRegistry_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	if err := r.Add(record("c1", "u1", domain.NamespaceMessaging, time.Now()), &stubSession{id: "c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, ok := r.Remove("c1")
	if !ok {
		t.Fatal("expected removal to report the record")
	}
	if removed.Record.UserID != "u1" {
		t.Fatalf("unexpected user: %s", removed.Record.UserID)
	}
	if _, ok := r.Remove("c1"); ok {
		t.Fatal("second remove must be a no-op")
	}
	if _, ok := r.Get("c1"); ok {
		t.Fatal("record still present after removal")
	}
}

func TestConnectionRegistry_ByUserNamespaceFilter(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	now := time.Now()
	_ = r.Add(record("c1", "u1", domain.NamespaceMessaging, now), &stubSession{id: "c1"})
	_ = r.Add(record("c2", "u1", domain.NamespaceSocial, now), &stubSession{id: "c2"})
	_ = r.Add(record("c3", "u2", domain.NamespaceMessaging, now), &stubSession{id: "c3"})

	if got := len(r.ByUser("u1", domain.NamespaceUnknown)); got != 2 {
		t.Fatalf("expected 2 connections for u1, got %d", got)
	}
	filtered := r.ByUser("u1", domain.NamespaceSocial)
	if len(filtered) != 1 || filtered[0].ID != "c2" {
		t.Fatalf("unexpected filtered result: %#v", filtered)
	}
	if got := len(r.ByUser("missing", domain.NamespaceUnknown)); got != 0 {
		t.Fatalf("expected empty result for unknown user, got %d", got)
	}
	if r.ActiveUsers() != 2 {
		t.Fatalf("expected 2 active users, got %d", r.ActiveUsers())
	}
	if got := len(r.ByNamespace(domain.NamespaceMessaging)); got != 2 {
		t.Fatalf("expected 2 messaging connections, got %d", got)
	}
	counts := r.CountByNamespace()
	if counts[domain.NamespaceMessaging] != 2 || counts[domain.NamespaceSocial] != 1 {
		t.Fatalf("unexpected namespace counts: %#v", counts)
	}
}

func TestConnectionRegistry_SweepIdleRemovesStaleOnly(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	_ = r.Add(record("stale", "u1", domain.NamespaceMessaging, base.Add(-time.Hour)), &stubSession{id: "stale"})
	_ = r.Add(record("fresh", "u2", domain.NamespaceMessaging, base.Add(-time.Minute)), &stubSession{id: "fresh"})

	removed := r.SweepIdle(10 * time.Minute)
	if len(removed) != 1 || removed[0].Record.ID != "stale" {
		t.Fatalf("unexpected sweep result: %#v", removed)
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatal("fresh connection must survive the sweep")
	}
}

func TestConnectionRegistry_TouchActivityProtectsFromSweep(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	_ = r.Add(record("c1", "u1", domain.NamespaceMessaging, base.Add(-time.Hour)), &stubSession{id: "c1"})
	if !r.TouchActivity("c1") {
		t.Fatal("touch on live connection must succeed")
	}
	if removed := r.SweepIdle(10 * time.Minute); len(removed) != 0 {
		t.Fatalf("touched connection swept: %#v", removed)
	}
	if r.TouchActivity("missing") {
		t.Fatal("touch on unknown id must report false")
	}
}

func TestConnectionRegistry_IdleUsersRequiresAllDevicesIdle(t *testing.T) {
	t.Parallel()

	r := NewConnectionRegistry()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	_ = r.Add(record("phone", "u1", domain.NamespaceMessaging, base.Add(-time.Hour)), &stubSession{id: "phone"})
	_ = r.Add(record("laptop", "u1", domain.NamespaceMessaging, base), &stubSession{id: "laptop"})
	_ = r.Add(record("c3", "u2", domain.NamespaceMessaging, base.Add(-time.Hour)), &stubSession{id: "c3"})

	idle := r.IdleUsers(10 * time.Minute)
	if len(idle) != 1 || idle[0] != "u2" {
		t.Fatalf("unexpected idle users: %#v", idle)
	}
}
