package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion tags every outbound envelope so clients can detect
// incompatible payload shapes after a deploy.
const ProtocolVersion = "1.0"

// Outbound event names.
const (
	EventConnectionEstablished = "connection_established"
	EventError                 = "error"

	EventUserJoinedRoom = "user_joined_room"
	EventUserLeftRoom   = "user_left_room"
	EventRoomJoined     = "room_joined"
	EventRoomLeft       = "room_left"

	EventMessageSent    = "message_sent"
	EventMessageSentAck = "message_sent_ack"
	EventMessageRecv    = "message_received"
	EventMessageRead    = "message_read"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"

	EventUserOnline       = "user_online"
	EventUserOffline      = "user_offline"
	EventUserStatusChange = "user_status_change"
	EventPresenceUpdated  = "presence_updated"
	EventOnlineUsers      = "online_users"

	EventPostCreated    = "post_created"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventPostLiked      = "post_liked"
	EventPostUnliked    = "post_unliked"
	EventCommentAdded   = "comment_added"
	EventCommentLiked   = "comment_liked"
	EventCommentUnliked = "comment_unliked"

	EventFollowRequest  = "follow_request"
	EventFollowAccepted = "follow_accepted"
	EventFollowDeclined = "follow_declined"
)

// EventMetadata carries the dispatch metadata attached to every envelope.
type EventMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"eventId"`
	Version   string    `json:"version"`
}

// Event is the wire envelope for everything the gateway pushes to clients.
type Event struct {
	Event     string        `json:"event"`
	Data      any           `json:"data"`
	Metadata  EventMetadata `json:"metadata"`
	Namespace Namespace     `json:"namespace"`
}

// NewEvent wraps a payload with a fresh event id and timestamp.
func NewEvent(name string, ns Namespace, data any) *Event {
	return &Event{
		Event: name,
		Data:  data,
		Metadata: EventMetadata{
			Timestamp: time.Now().UTC(),
			EventID:   uuid.NewString(),
			Version:   ProtocolVersion,
		},
		Namespace: ns,
	}
}

// NewErrorEvent builds the envelope sent back to a session whose inbound
// request could not be handled. The reason is scoped to that session only.
func NewErrorEvent(ns Namespace, action, reason string) *Event {
	return NewEvent(EventError, ns, map[string]string{
		"action": action,
		"error":  reason,
	})
}
