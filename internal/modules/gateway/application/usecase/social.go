package usecase

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/domain"
)

// FeedKey names the shared feed room every client may join to watch the
// whole post stream.
const FeedKey = "home"

// JoinPostCommand is the inbound join_post payload.
type JoinPostCommand struct {
	PostID string `json:"postId" validate:"required"`
}

// LikePostCommand is the inbound like_post payload; Liked false means the
// like was withdrawn.
type LikePostCommand struct {
	PostID string `json:"postId" validate:"required"`
	Liked  bool   `json:"liked"`
}

// AddCommentCommand is the inbound add_comment payload.
type AddCommentCommand struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// LikeCommentCommand is the inbound like_comment payload.
type LikeCommentCommand struct {
	PostID    string `json:"postId" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	Liked     bool   `json:"liked"`
}

// FollowCommand is the inbound follow_user payload. The event lands on the
// target user directly: the relationship is between exactly two identities
// regardless of room membership.
type FollowCommand struct {
	TargetID string `json:"targetId" validate:"required"`
	Action   string `json:"action" validate:"omitempty,oneof=request accept decline"`
}

// PostOccurrence is a post lifecycle event arriving from the social data
// service (via the broker), relayed to the feed room and the post's room.
type PostOccurrence struct {
	PostID   string `json:"postId"`
	AuthorID string `json:"authorId"`
	Action   string `json:"action"`
	Data     any    `json:"data,omitempty"`
}

// SocialUseCase translates social interactions into room broadcasts and
// user-to-user deliveries.
type SocialUseCase struct {
	connections port.Connections
	rooms       port.Rooms
	dispatcher  port.Dispatcher
	validate    *validator.Validate
}

func NewSocialUseCase(connections port.Connections, rooms port.Rooms, dispatcher port.Dispatcher) *SocialUseCase {
	return &SocialUseCase{
		connections: connections,
		rooms:       rooms,
		dispatcher:  dispatcher,
		validate:    validator.New(),
	}
}

// JoinPost creates the post room if needed and joins the caller's connection.
// Refused when the connection is no longer registered, same as
// JoinConversation.
func (uc *SocialUseCase) JoinPost(userID, connectionID string, cmd JoinPostCommand) (domain.Room, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, ok := uc.connections.Get(connectionID); !ok {
		return domain.Room{}, fmt.Errorf("%w: %s", ErrConnectionGone, connectionID)
	}
	room := uc.rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, cmd.PostID)
	uc.rooms.Join(room.ID, userID, connectionID)
	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(domain.EventUserJoinedRoom, domain.NamespaceSocial, map[string]string{
		"roomId": room.ID,
		"userId": userID,
	}))
	return room, nil
}

// LikePost broadcasts the like (or its withdrawal) to the post's room only;
// likes never touch presence or user-level delivery.
func (uc *SocialUseCase) LikePost(userID string, cmd LikePostCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	name := domain.EventPostUnliked
	if cmd.Liked {
		name = domain.EventPostLiked
	}
	room := uc.rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, cmd.PostID)
	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(name, domain.NamespaceSocial, map[string]string{
		"postId": cmd.PostID,
		"userId": userID,
		"at":     time.Now().UTC().Format(time.RFC3339Nano),
	}))
	return nil
}

// AddComment stamps a comment id and broadcasts it to the post's room.
func (uc *SocialUseCase) AddComment(userID string, cmd AddCommentCommand) (string, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	commentID := uuid.NewString()
	room := uc.rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, cmd.PostID)
	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(domain.EventCommentAdded, domain.NamespaceSocial, map[string]string{
		"commentId": commentID,
		"postId":    cmd.PostID,
		"userId":    userID,
		"content":   cmd.Content,
		"at":        time.Now().UTC().Format(time.RFC3339Nano),
	}))
	return commentID, nil
}

// LikeComment broadcasts a comment like (or its withdrawal) to the post room.
func (uc *SocialUseCase) LikeComment(userID string, cmd LikeCommentCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	name := domain.EventCommentUnliked
	if cmd.Liked {
		name = domain.EventCommentLiked
	}
	room := uc.rooms.CreateRoom(domain.RoomTypePost, domain.NamespaceSocial, cmd.PostID)
	uc.dispatcher.EmitToRoom(room.ID, domain.NewEvent(name, domain.NamespaceSocial, map[string]string{
		"postId":    cmd.PostID,
		"commentId": cmd.CommentID,
		"userId":    userID,
	}))
	return nil
}

// Follow delivers a follow request/accept/decline user-to-user.
func (uc *SocialUseCase) Follow(requesterID string, cmd FollowCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	name := domain.EventFollowRequest
	switch cmd.Action {
	case "accept":
		name = domain.EventFollowAccepted
	case "decline":
		name = domain.EventFollowDeclined
	}
	uc.dispatcher.EmitToUser(cmd.TargetID, domain.NamespaceUnknown, domain.NewEvent(name, domain.NamespaceSocial, map[string]string{
		"fromUserId": requesterID,
		"toUserId":   cmd.TargetID,
		"at":         time.Now().UTC().Format(time.RFC3339Nano),
	}))
	return nil
}

// HandlePostOccurrence relays a post lifecycle event from the social data
// service to the feed room, plus the post's own room for updates/deletes.
func (uc *SocialUseCase) HandlePostOccurrence(occ PostOccurrence) {
	var name string
	switch occ.Action {
	case "created":
		name = domain.EventPostCreated
	case "updated":
		name = domain.EventPostUpdated
	case "deleted":
		name = domain.EventPostDeleted
	default:
		return
	}
	feed := uc.rooms.CreateRoom(domain.RoomTypeFeed, domain.NamespaceSocial, FeedKey)
	event := domain.NewEvent(name, domain.NamespaceSocial, occ)
	uc.dispatcher.EmitToRoom(feed.ID, event)
	if occ.Action != "created" {
		uc.dispatcher.EmitToRoom(domain.RoomID(domain.RoomTypePost, occ.PostID), event)
	}
}
