package port

import (
	"context"
	"time"

	"sociaWs/internal/modules/gateway/domain"
)

// Session is the transport-side handle for one live client connection. Send
// enqueues without blocking and reports whether the event was accepted; a
// false return means the peer is too slow or already gone.
type Session interface {
	ID() string
	Send(event *domain.Event) bool
	Close()
}

// Dispatcher routes one logical event to however many sessions currently
// match the target. All methods are fire-and-forget with respect to actual
// transport delivery.
type Dispatcher interface {
	// EmitToUser writes to every connection the user holds, optionally
	// filtered by namespace (NamespaceUnknown means all). Returns false when
	// the user has no matching connection; offline users are a normal case.
	EmitToUser(userID string, ns domain.Namespace, event *domain.Event) bool
	// EmitToRoom broadcasts to the room's member set. Returns false when the
	// room does not exist.
	EmitToRoom(roomID string, event *domain.Event) bool
	// EmitToRoomExcept behaves like EmitToRoom but skips the given
	// connection, used for typing indicators where the sender must not hear
	// its own broadcast.
	EmitToRoomExcept(roomID, exceptConnectionID string, event *domain.Event) bool
	// BroadcastToNamespace fans out to every connection in the namespace and
	// returns the number of sessions reached.
	BroadcastToNamespace(ns domain.Namespace, event *domain.Event) int
}

// RemovedConnection pairs the record and session handed back by Remove and
// SweepIdle so callers can run downstream cleanup exactly once.
type RemovedConnection struct {
	Record  domain.Connection
	Session Session
}

// Connections is the contract over the connection registry that the gateway
// use cases consume. Lookups return empty results, never errors.
type Connections interface {
	Add(record domain.Connection, session Session) error
	Remove(connectionID string) (RemovedConnection, bool)
	Get(connectionID string) (domain.Connection, bool)
	ByUser(userID string, ns domain.Namespace) []domain.Connection
	TouchActivity(connectionID string) bool
	SweepIdle(maxIdle time.Duration) []RemovedConnection
	IdleUsers(threshold time.Duration) []string
	Len() int
	ActiveUsers() int
	CountByNamespace() map[domain.Namespace]int
}

// Rooms is the contract over the room registry that the gateway use cases
// consume.
type Rooms interface {
	CreateRoom(rt domain.RoomType, ns domain.Namespace, key string) domain.Room
	Join(roomID, userID, connectionID string) bool
	Leave(roomID, userID, connectionID string) bool
	DeleteRoom(roomID string) bool
	Get(roomID string) (domain.Room, bool)
	Members(roomID string) ([]string, bool)
	RoomsOf(userID string) []string
	RemoveConnectionEverywhere(userID, connectionID string) []string
	RemoveUserEverywhere(userID string) int
	CleanupEmpty() int
	BumpMessageCount(roomID string) int64
	Len() int
	CountByType() map[domain.RoomType]int
	CountByNamespace() map[domain.Namespace]int
}

// BridgeScope identifies the addressing mode of a cross-instance frame.
type BridgeScope string

const (
	BridgeScopeRoom      BridgeScope = "room"
	BridgeScopeUser      BridgeScope = "user"
	BridgeScopeNamespace BridgeScope = "namespace"
)

// BridgeFrame is the unit published to the cross-instance fan-out topic so
// sockets held by other gateway instances receive the same event.
type BridgeFrame struct {
	Scope     BridgeScope   `json:"scope"`
	Target    string        `json:"target"`
	Origin    string        `json:"origin"`
	Event     *domain.Event `json:"event"`
	ExceptID  string        `json:"exceptId,omitempty"`
	Namespace string        `json:"namespace,omitempty"`
}

// Publisher mirrors local emissions to the cross-instance bridge.
type Publisher interface {
	Publish(ctx context.Context, frame BridgeFrame) error
}
