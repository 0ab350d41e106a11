package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"sociaWs/internal/modules/gateway/domain"
)

// Command is one inbound client frame: a named event plus its raw payload.
type Command struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (c Command) eventKey() string {
	return strings.ToLower(strings.TrimSpace(c.Event))
}

// CommandHandler processes one inbound event for a session. Handler failures
// are answered with an error event to that session only; they never touch
// other clients or registry state.
type CommandHandler func(ctx context.Context, client *Client, cmd Command)

// CommandRouter maps inbound event names to handlers. Unknown events are
// answered with an error envelope rather than dropped silently.
type CommandRouter struct {
	namespace      domain.Namespace
	handlers       map[string]CommandHandler
	handlerTimeout time.Duration
}

func NewCommandRouter(ns domain.Namespace) *CommandRouter {
	return &CommandRouter{
		namespace:      ns,
		handlers:       make(map[string]CommandHandler),
		handlerTimeout: 10 * time.Second,
	}
}

// Register binds the handler to the (normalized) event name.
func (r *CommandRouter) Register(event string, handler CommandHandler) {
	key := strings.ToLower(strings.TrimSpace(event))
	if key == "" || handler == nil {
		return
	}
	r.handlers[key] = handler
}

// Process routes the command to its handler under a per-command timeout.
func (r *CommandRouter) Process(client *Client, cmd Command) {
	if client == nil {
		return
	}
	key := cmd.eventKey()
	if key == "" {
		return
	}
	handler, ok := r.handlers[key]
	if !ok {
		slog.Debug("inbound event unsupported", slog.String("connectionId", client.ID()), slog.String("event", key))
		client.Send(domain.NewErrorEvent(r.namespace, key, "unsupported event"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.handlerTimeout)
	defer cancel()
	handler(ctx, client, cmd)
}
