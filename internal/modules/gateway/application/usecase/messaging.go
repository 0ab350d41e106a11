package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
)

var (
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConnectionGone       = errors.New("connection not registered")
)

// SendMessageCommand is the inbound send_message payload. A non-empty
// ReceiverID marks a direct conversation and triggers dual delivery.
type SendMessageCommand struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required"`
	MessageType    string `json:"messageType"`
	ReceiverID     string `json:"receiverId"`
}

// TypingCommand is the inbound typing_indicator payload.
type TypingCommand struct {
	ConversationID string `json:"conversationId" validate:"required"`
	IsTyping       bool   `json:"isTyping"`
}

// MarkReadCommand is the inbound mark_message_read payload.
type MarkReadCommand struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
}

// JoinConversationCommand is the inbound join_conversation payload.
type JoinConversationCommand struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

// ChatMessage is the broadcast payload for a delivered message. Seq is the
// conversation's message counter at delivery time.
type ChatMessage struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId,omitempty"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	Seq            int64     `json:"seq"`
	SentAt         time.Time `json:"sentAt"`
}

// MessagingUseCase translates inbound messaging requests into room registry
// operations and dispatcher calls.
type MessagingUseCase struct {
	connections port.Connections
	rooms       port.Rooms
	dispatcher  port.Dispatcher
	validate    *validator.Validate
}

func NewMessagingUseCase(connections port.Connections, rooms port.Rooms, dispatcher port.Dispatcher) *MessagingUseCase {
	return &MessagingUseCase{
		connections: connections,
		rooms:       rooms,
		dispatcher:  dispatcher,
		validate:    validator.New(),
	}
}

// JoinConversation creates the conversation room if needed and joins the
// caller's connection; the room hears user_joined_room. A join arriving after
// the connection's disconnect cascade is refused: rooms must never hold a
// member id the connection registry no longer knows.
func (uc *MessagingUseCase) JoinConversation(userID, connectionID string, cmd JoinConversationCommand) (domain.Room, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, ok := uc.connections.Get(connectionID); !ok {
		return domain.Room{}, fmt.Errorf("%w: %s", ErrConnectionGone, connectionID)
	}
	room := uc.rooms.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, cmd.ConversationID)
	uc.rooms.Join(room.ID, userID, connectionID)
	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(domain.EventUserJoinedRoom, domain.NamespaceMessaging, map[string]string{
		"roomId": room.ID,
		"userId": userID,
	}))
	return room, nil
}

// SendMessage stamps a message id and timestamp, broadcasts to the
// conversation room, and direct-emits to the receiver for direct
// conversations so the message lands even if they never joined the room.
func (uc *MessagingUseCase) SendMessage(senderID string, cmd SendMessageCommand) (ChatMessage, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	messageType := strings.TrimSpace(cmd.MessageType)
	if messageType == "" {
		messageType = "text"
	}

	room := uc.rooms.CreateRoom(domain.RoomTypeConversation, domain.NamespaceMessaging, cmd.ConversationID)
	message := ChatMessage{
		MessageID:      uuid.NewString(),
		ConversationID: cmd.ConversationID,
		SenderID:       senderID,
		ReceiverID:     cmd.ReceiverID,
		Content:        cmd.Content,
		MessageType:    messageType,
		Seq:            uc.rooms.BumpMessageCount(room.ID),
		SentAt:         time.Now().UTC(),
	}

	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(domain.EventMessageSent, domain.NamespaceMessaging, message))
	if message.ReceiverID != "" {
		// Dual delivery: the receiver's connections in any namespace hear the
		// message even before they join the conversation room.
		uc.dispatcher.EmitToUser(message.ReceiverID, domain.NamespaceUnknown, domain.NewEvent(domain.EventMessageRecv, domain.NamespaceMessaging, message))
	}
	return message, nil
}

// Typing relays start/stop indicators to every other member of the room; the
// sender never hears its own indicator.
func (uc *MessagingUseCase) Typing(senderID, senderConnectionID string, cmd TypingCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	name := domain.EventTypingStop
	if cmd.IsTyping {
		name = domain.EventTypingStart
	}
	roomID := domain.RoomID(domain.RoomTypeConversation, cmd.ConversationID)
	if !uc.dispatcher.EmitToRoomExcept(roomID, senderConnectionID, domain.NewEvent(name, domain.NamespaceMessaging, map[string]string{
		"conversationId": cmd.ConversationID,
		"userId":         senderID,
	})) {
		return ErrConversationNotFound
	}
	return nil
}

// MarkRead announces a read receipt to the conversation room.
func (uc *MessagingUseCase) MarkRead(userID string, cmd MarkReadCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	roomID := domain.RoomID(domain.RoomTypeConversation, cmd.ConversationID)
	if !uc.dispatcher.EmitToRoom(roomID, domain.NewEvent(domain.EventMessageRead, domain.NamespaceMessaging, map[string]string{
		"conversationId": cmd.ConversationID,
		"messageId":      cmd.MessageID,
		"userId":         userID,
		"readAt":         time.Now().UTC().Format(time.RFC3339Nano),
	})) {
		return ErrConversationNotFound
	}
	return nil
}
