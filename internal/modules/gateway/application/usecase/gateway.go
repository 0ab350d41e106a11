package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/platform/metrics"
)

// GatewayConfig carries the lifecycle tunables. None of them are
// correctness-critical beyond "reclaimed state is eventually removed".
type GatewayConfig struct {
	InstanceID      string
	IdleThreshold   time.Duration
	AwayThreshold   time.Duration
	SweepInterval   time.Duration
	CleanupInterval time.Duration
}

// GatewayStats is the observability snapshot exposed over HTTP.
type GatewayStats struct {
	TotalConnections       int                      `json:"totalConnections"`
	ConnectionsByNamespace map[domain.Namespace]int `json:"connectionsByNamespace"`
	ActiveUsers            int                      `json:"activeUsers"`
	OnlineUsers            int                      `json:"onlineUsers"`
	TotalRooms             int                      `json:"totalRooms"`
	RoomsByType            map[domain.RoomType]int  `json:"roomsByType"`
	RoomsByNamespace       map[domain.Namespace]int `json:"roomsByNamespace"`
	InstanceID             string                   `json:"instanceId"`
}

// Gateway is the façade the transport binds to. It wires the registries,
// presence tracker and dispatcher together and owns the connect/disconnect
// cascades.
//
// All mutating cascades run under one mutex so no inbound event can observe
// a half-updated cascade, e.g. a room still listing a participant whose
// connection is already gone. Dispatch inside the critical section is safe
// because emission only enqueues and never blocks on delivery.
type Gateway struct {
	mu          sync.Mutex
	connections port.Connections
	rooms       port.Rooms
	presence    *PresenceTracker
	dispatcher  port.Dispatcher
	cfg         GatewayConfig
}

func NewGateway(connections port.Connections, rooms port.Rooms, presence *PresenceTracker, dispatcher port.Dispatcher, cfg GatewayConfig) *Gateway {
	return &Gateway{
		connections: connections,
		rooms:       rooms,
		presence:    presence,
		dispatcher:  dispatcher,
		cfg:         cfg,
	}
}

// Connect registers the session, brings the user online on their first
// connection, creates their contacts room, and acks connection_established.
func (g *Gateway) Connect(session port.Session, userID string, ns domain.Namespace, metadata map[string]string) (domain.Connection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record := domain.NewConnection(session.ID(), userID, ns, metadata, time.Now().UTC())
	if err := g.connections.Add(record, session); err != nil {
		return domain.Connection{}, err
	}

	// Contacts room: followers subscribe here to hear this user's presence.
	g.rooms.CreateRoom(domain.RoomTypeUser, domain.NamespacePresence, userID)

	if len(g.connections.ByUser(userID, domain.NamespaceUnknown)) == 1 {
		g.presence.HandleConnect(userID, metadata)
	}

	session.Send(domain.NewEvent(domain.EventConnectionEstablished, ns, map[string]string{
		"connectionId": record.ID,
		"userId":       userID,
		"namespace":    string(ns),
		"instanceId":   g.cfg.InstanceID,
	}))
	return record, nil
}

// Disconnect runs the full cascade for one connection as a single critical
// section: registry removal, room scrubbing, and the presence transition when
// it was the user's last connection. Idempotent.
//
// The session is closed only after the mutex is released: close hooks call
// back into Disconnect, so closing inside the critical section would deadlock
// on every server-initiated close.
func (g *Gateway) Disconnect(connectionID string) bool {
	g.mu.Lock()
	removed, ok := g.connections.Remove(connectionID)
	if ok {
		g.cascadeLocked(removed)
	}
	g.mu.Unlock()

	if ok {
		closeSession(removed)
	}
	return ok
}

func (g *Gateway) cascadeLocked(removed port.RemovedConnection) {
	userID := removed.Record.UserID
	left := g.rooms.RemoveConnectionEverywhere(userID, removed.Record.ID)
	for _, roomID := range left {
		g.dispatcher.EmitToRoom(roomID, domain.NewEvent(domain.EventUserLeftRoom, removed.Record.Namespace, map[string]string{
			"roomId": roomID,
			"userId": userID,
		}))
	}
	if len(g.connections.ByUser(userID, domain.NamespaceUnknown)) == 0 {
		g.rooms.RemoveUserEverywhere(userID)
		g.presence.HandleDisconnect(userID)
	}
}

func closeSession(removed port.RemovedConnection) {
	if removed.Session != nil {
		removed.Session.Close()
	}
}

// JoinRoom joins an existing room; false when the room does not exist or the
// connection is no longer registered. The caller is acked with room_joined,
// the room hears user_joined_room.
func (g *Gateway) JoinRoom(session port.Session, userID, roomID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	// A join racing the disconnect cascade must never re-insert the dead
	// connection id into a room.
	if _, ok := g.connections.Get(session.ID()); !ok {
		return false
	}
	if !g.rooms.Join(roomID, userID, session.ID()) {
		return false
	}
	session.Send(domain.NewEvent(domain.EventRoomJoined, domain.NamespaceUnknown, map[string]string{"roomId": roomID}))
	g.dispatcher.EmitToRoom(roomID, domain.NewEvent(domain.EventUserJoinedRoom, domain.NamespaceUnknown, map[string]string{
		"roomId": roomID,
		"userId": userID,
	}))
	return true
}

// LeaveRoom removes the session from the room; false when the room does not
// exist or the session was not a member.
func (g *Gateway) LeaveRoom(session port.Session, userID, roomID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.rooms.Leave(roomID, userID, session.ID()) {
		return false
	}
	session.Send(domain.NewEvent(domain.EventRoomLeft, domain.NamespaceUnknown, map[string]string{"roomId": roomID}))
	g.dispatcher.EmitToRoom(roomID, domain.NewEvent(domain.EventUserLeftRoom, domain.NamespaceUnknown, map[string]string{
		"roomId": roomID,
		"userId": userID,
	}))
	return true
}

// TouchActivity refreshes the connection's idle clock.
func (g *Gateway) TouchActivity(connectionID string) {
	g.connections.TouchActivity(connectionID)
}

// SweepIdle evicts connections idle past the threshold and runs the same
// cascade a hard disconnect would. Returns the eviction count. Sessions are
// closed outside the critical section for the same reason Disconnect does.
func (g *Gateway) SweepIdle() int {
	g.mu.Lock()
	removed := g.connections.SweepIdle(g.cfg.IdleThreshold)
	for _, rm := range removed {
		g.cascadeLocked(rm)
	}
	if n := len(removed); n > 0 {
		metrics.SweepRemovals.WithLabelValues("idle_connections").Add(float64(n))
	}
	g.mu.Unlock()

	for _, rm := range removed {
		closeSession(rm)
	}
	return len(removed)
}

// MarkIdleAway flips users with no recent activity on any device to away.
func (g *Gateway) MarkIdleAway() {
	for _, userID := range g.connections.IdleUsers(g.cfg.AwayThreshold) {
		g.presence.SetAway(userID)
	}
}

// Cleanup reclaims empty rooms and stale presence records.
func (g *Gateway) Cleanup() (rooms, presence int) {
	rooms = g.rooms.CleanupEmpty()
	presence = g.presence.CleanupStale()
	if rooms > 0 {
		metrics.SweepRemovals.WithLabelValues("empty_rooms").Add(float64(rooms))
	}
	if presence > 0 {
		metrics.SweepRemovals.WithLabelValues("stale_presence").Add(float64(presence))
	}
	return rooms, presence
}

// Run drives the periodic sweeps until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	sweep := time.NewTicker(g.cfg.SweepInterval)
	cleanup := time.NewTicker(g.cfg.CleanupInterval)
	defer sweep.Stop()
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("gateway sweeps stopped")
			return
		case <-sweep.C:
			g.MarkIdleAway()
			g.SweepIdle()
		case <-cleanup.C:
			g.Cleanup()
		}
	}
}

// Stats snapshots the observability counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		TotalConnections:       g.connections.Len(),
		ConnectionsByNamespace: g.connections.CountByNamespace(),
		ActiveUsers:            g.connections.ActiveUsers(),
		OnlineUsers:            len(g.presence.OnlineUsers()),
		TotalRooms:             g.rooms.Len(),
		RoomsByType:            g.rooms.CountByType(),
		RoomsByNamespace:       g.rooms.CountByNamespace(),
		InstanceID:             g.cfg.InstanceID,
	}
}

// Healthy reports whether the internal invariants hold: non-negative counts,
// per-namespace counts summing to the total, and at least as many
// connections as distinct active users.
func (g *Gateway) Healthy() bool {
	stats := g.Stats()
	if stats.TotalConnections < 0 || stats.TotalRooms < 0 || stats.ActiveUsers < 0 {
		return false
	}
	if stats.TotalConnections < stats.ActiveUsers {
		return false
	}
	sum := 0
	for _, n := range stats.ConnectionsByNamespace {
		if n < 0 {
			return false
		}
		sum += n
	}
	return sum == stats.TotalConnections
}

// Presence exposes the tracker for the transport layer's presence commands.
func (g *Gateway) Presence() *PresenceTracker {
	return g.presence
}
