package transport

import (
	"context"
	"encoding/json"
	"log/slog"

	"sociaWs/internal/modules/gateway/application/usecase"
	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/modules/gateway/infrastructure"
)

type commandDeps struct {
	gateway   *usecase.Gateway
	messaging *usecase.MessagingUseCase
	social    *usecase.SocialUseCase
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type activityPayload struct {
	Activity string `json:"activity"`
	TargetID string `json:"targetId"`
}

// buildRouter wires the inbound event surface for one namespace. Room and
// presence operations are available everywhere; messaging and social
// commands only on their own namespaces.
func buildRouter(ns domain.Namespace, deps commandDeps) *infrastructure.CommandRouter {
	router := infrastructure.NewCommandRouter(ns)

	router.Register("join_room", deps.handleJoinRoom)
	router.Register("leave_room", deps.handleLeaveRoom)
	router.Register("update_status", deps.handleUpdateStatus)
	router.Register("update_activity", deps.handleUpdateActivity)
	router.Register("get_online_users", deps.handleGetOnlineUsers)

	switch ns {
	case domain.NamespaceMessaging:
		router.Register("join_conversation", deps.handleJoinConversation)
		router.Register("send_message", deps.handleSendMessage)
		router.Register("typing_indicator", deps.handleTyping)
		router.Register("mark_message_read", deps.handleMarkRead)
	case domain.NamespaceSocial:
		router.Register("join_post", deps.handleJoinPost)
		router.Register("like_post", deps.handleLikePost)
		router.Register("add_comment", deps.handleAddComment)
		router.Register("like_comment", deps.handleLikeComment)
		router.Register("follow_user", deps.handleFollow)
	}
	return router
}

// decodePayload tolerates an absent payload: validation of required fields
// belongs to the use cases.
func decodePayload(cmd infrastructure.Command, v any) error {
	if len(cmd.Data) == 0 {
		return nil
	}
	return json.Unmarshal(cmd.Data, v)
}

func sendCommandError(client *infrastructure.Client, ns domain.Namespace, action, reason string) {
	slog.Debug("inbound command rejected", slog.String("connectionId", client.ID()), slog.String("action", action), slog.String("reason", reason))
	client.Send(domain.NewErrorEvent(ns, action, reason))
}

func (d commandDeps) handleJoinRoom(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload roomPayload
	if err := decodePayload(cmd, &payload); err != nil || payload.RoomID == "" {
		sendCommandError(client, client.Namespace(), "join_room", "invalid payload")
		return
	}
	if !d.gateway.JoinRoom(client, client.UserID(), payload.RoomID) {
		sendCommandError(client, client.Namespace(), "join_room", "room not found")
	}
}

func (d commandDeps) handleLeaveRoom(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload roomPayload
	if err := decodePayload(cmd, &payload); err != nil || payload.RoomID == "" {
		sendCommandError(client, client.Namespace(), "leave_room", "invalid payload")
		return
	}
	if !d.gateway.LeaveRoom(client, client.UserID(), payload.RoomID) {
		sendCommandError(client, client.Namespace(), "leave_room", "room not found")
	}
}

func (d commandDeps) handleUpdateStatus(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload statusPayload
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, client.Namespace(), "update_status", "invalid payload")
		return
	}
	status := domain.NormalizePresenceStatus(payload.Status)
	if !d.gateway.Presence().UpdateStatus(client.UserID(), status) {
		sendCommandError(client, client.Namespace(), "update_status", "unknown status")
	}
}

func (d commandDeps) handleUpdateActivity(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload activityPayload
	if err := decodePayload(cmd, &payload); err != nil || payload.Activity == "" {
		sendCommandError(client, client.Namespace(), "update_activity", "invalid payload")
		return
	}
	d.gateway.Presence().UpdateActivity(client.UserID(), payload.Activity, payload.TargetID)
}

func (d commandDeps) handleGetOnlineUsers(_ context.Context, client *infrastructure.Client, _ infrastructure.Command) {
	users := d.gateway.Presence().OnlineUsers()
	client.Send(domain.NewEvent(domain.EventOnlineUsers, domain.NamespacePresence, map[string]any{
		"count": len(users),
		"users": users,
	}))
}

func (d commandDeps) handleJoinConversation(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.JoinConversationCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "join_conversation", "invalid payload")
		return
	}
	if _, err := d.messaging.JoinConversation(client.UserID(), client.ID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "join_conversation", err.Error())
	}
}

func (d commandDeps) handleSendMessage(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.SendMessageCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "send_message", "invalid payload")
		return
	}
	message, err := d.messaging.SendMessage(client.UserID(), payload)
	if err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "send_message", err.Error())
		return
	}
	client.Send(domain.NewEvent(domain.EventMessageSentAck, domain.NamespaceMessaging, map[string]string{
		"messageId":      message.MessageID,
		"conversationId": message.ConversationID,
	}))
}

func (d commandDeps) handleTyping(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.TypingCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "typing_indicator", "invalid payload")
		return
	}
	if err := d.messaging.Typing(client.UserID(), client.ID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "typing_indicator", err.Error())
	}
}

func (d commandDeps) handleMarkRead(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.MarkReadCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "mark_message_read", "invalid payload")
		return
	}
	if err := d.messaging.MarkRead(client.UserID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceMessaging, "mark_message_read", err.Error())
	}
}

func (d commandDeps) handleJoinPost(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.JoinPostCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "join_post", "invalid payload")
		return
	}
	if _, err := d.social.JoinPost(client.UserID(), client.ID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "join_post", err.Error())
	}
}

func (d commandDeps) handleLikePost(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.LikePostCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "like_post", "invalid payload")
		return
	}
	if err := d.social.LikePost(client.UserID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "like_post", err.Error())
	}
}

func (d commandDeps) handleAddComment(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.AddCommentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "add_comment", "invalid payload")
		return
	}
	if _, err := d.social.AddComment(client.UserID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "add_comment", err.Error())
	}
}

func (d commandDeps) handleLikeComment(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.LikeCommentCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "like_comment", "invalid payload")
		return
	}
	if err := d.social.LikeComment(client.UserID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "like_comment", err.Error())
	}
}

func (d commandDeps) handleFollow(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload usecase.FollowCommand
	if err := decodePayload(cmd, &payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "follow_user", "invalid payload")
		return
	}
	if err := d.social.Follow(client.UserID(), payload); err != nil {
		sendCommandError(client, domain.NamespaceSocial, "follow_user", err.Error())
	}
}
