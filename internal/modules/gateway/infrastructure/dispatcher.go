package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/platform/metrics"
)

// Dispatcher resolves targets through the two registries and enqueues writes.
// It keeps no state of its own beyond the bridge publisher: every query goes
// through the registry accessors so there is exactly one source of truth.
//
// Writes never block: a session that cannot accept the event is skipped and
// delivery to the remaining targets continues.
type Dispatcher struct {
	connections *ConnectionRegistry
	rooms       *RoomRegistry
	publisher   port.Publisher
	instanceID  string
}

// NewDispatcher wires the dispatcher over the registries. The publisher may
// be nil for single-instance deployments; emissions are then local only.
func NewDispatcher(connections *ConnectionRegistry, rooms *RoomRegistry, publisher port.Publisher, instanceID string) *Dispatcher {
	return &Dispatcher{
		connections: connections,
		rooms:       rooms,
		publisher:   publisher,
		instanceID:  instanceID,
	}
}

// EmitToUser writes to every connection the user holds, optionally filtered
// by namespace. False means no matching local connection; offline users are
// a normal case, not an error.
func (d *Dispatcher) EmitToUser(userID string, ns domain.Namespace, event *domain.Event) bool {
	delivered := d.emitSessions(d.connections.SessionsByUser(userID, ns), "", event, "user")
	d.mirror(port.BridgeFrame{Scope: port.BridgeScopeUser, Target: userID, Namespace: string(ns), Event: event})
	return delivered > 0
}

// EmitToRoom broadcasts to the room's member set. False when the room does
// not exist.
func (d *Dispatcher) EmitToRoom(roomID string, event *domain.Event) bool {
	return d.emitRoom(roomID, "", event, true)
}

// EmitToRoomExcept broadcasts to the room while skipping one connection, so
// a sender does not hear its own typing indicator.
func (d *Dispatcher) EmitToRoomExcept(roomID, exceptConnectionID string, event *domain.Event) bool {
	return d.emitRoom(roomID, exceptConnectionID, event, true)
}

// BroadcastToNamespace fans out unconditionally to every connection in the
// namespace and returns the number of sessions reached.
func (d *Dispatcher) BroadcastToNamespace(ns domain.Namespace, event *domain.Event) int {
	delivered := d.emitSessions(d.connections.SessionsByNamespace(ns), "", event, "namespace")
	d.mirror(port.BridgeFrame{Scope: port.BridgeScopeNamespace, Target: string(ns), Event: event})
	return delivered
}

// ApplyRemote delivers a bridge frame that originated on another gateway
// instance to local sockets only. Frames published by this instance are
// skipped to prevent echo.
func (d *Dispatcher) ApplyRemote(frame port.BridgeFrame) {
	if frame.Origin == d.instanceID || frame.Event == nil {
		metrics.BridgeFrames.WithLabelValues("skipped").Inc()
		return
	}
	metrics.BridgeFrames.WithLabelValues("applied").Inc()
	switch frame.Scope {
	case port.BridgeScopeRoom:
		d.emitRoom(frame.Target, frame.ExceptID, frame.Event, false)
	case port.BridgeScopeUser:
		d.emitSessions(d.connections.SessionsByUser(frame.Target, domain.NormalizeNamespace(frame.Namespace)), "", frame.Event, "user")
	case port.BridgeScopeNamespace:
		d.emitSessions(d.connections.SessionsByNamespace(domain.NormalizeNamespace(frame.Target)), "", frame.Event, "namespace")
	default:
		slog.Warn("bridge frame with unknown scope", slog.String("scope", string(frame.Scope)))
	}
}

func (d *Dispatcher) emitRoom(roomID, exceptConnectionID string, event *domain.Event, mirror bool) bool {
	memberIDs, exists := d.rooms.Members(roomID)
	if !exists {
		return false
	}
	d.emitSessions(d.connections.Sessions(memberIDs), exceptConnectionID, event, "room")
	if mirror {
		d.mirror(port.BridgeFrame{Scope: port.BridgeScopeRoom, Target: roomID, ExceptID: exceptConnectionID, Event: event})
	}
	return true
}

func (d *Dispatcher) emitSessions(sessions []port.Session, exceptConnectionID string, event *domain.Event, scope string) int {
	delivered := 0
	for _, session := range sessions {
		if exceptConnectionID != "" && session.ID() == exceptConnectionID {
			continue
		}
		if session.Send(event) {
			delivered++
			continue
		}
		// Dead or saturated peer: skip it, the rest of the fan-out proceeds.
		metrics.WritesDropped.Inc()
		slog.Warn("event write skipped", slog.String("connectionId", session.ID()), slog.String("event", event.Event))
	}
	if delivered > 0 {
		metrics.EventsDelivered.WithLabelValues(scope).Add(float64(delivered))
	}
	return delivered
}

func (d *Dispatcher) mirror(frame port.BridgeFrame) {
	if d.publisher == nil {
		return
	}
	frame.Origin = d.instanceID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.publisher.Publish(ctx, frame); err != nil {
			slog.Warn("bridge publish failed", slog.String("scope", string(frame.Scope)), slog.String("target", frame.Target), slog.Any("error", err))
			return
		}
		metrics.BridgeFrames.WithLabelValues("published").Inc()
	}()
}
