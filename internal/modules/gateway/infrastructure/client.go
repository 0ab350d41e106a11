package infrastructure

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sociaWs/internal/modules/gateway/domain"
)

const (
	pingInterval  = 30 * time.Second
	pongWait      = 60 * time.Second
	writeWait     = 5 * time.Second
	maxFrameBytes = 1 << 16
)

// Client is one websocket session. Outbound events are enqueued on a buffered
// channel drained by WritePump so no caller ever blocks on a slow peer; a
// peer that cannot keep up is closed, which runs the close hooks and lets the
// gateway cascade the disconnect.
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	id         string
	userID     string
	namespace  domain.Namespace
	router     *CommandRouter
	onActivity func()
	closeOnce  sync.Once
	closeHooks []func(*Client)
	hookMu     sync.Mutex
}

// NewClient builds a session with the given send buffer size.
func NewClient(conn *websocket.Conn, id, userID string, ns domain.Namespace, buf int, router *CommandRouter) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan []byte, buf),
		done:      make(chan struct{}),
		id:        id,
		userID:    userID,
		namespace: ns,
		router:    router,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() string { return c.userID }

func (c *Client) Namespace() domain.Namespace { return c.namespace }

// OnActivity registers the callback invoked for every inbound frame; the
// gateway uses it to refresh the connection's last-activity stamp.
func (c *Client) OnActivity(fn func()) {
	c.onActivity = fn
}

// AddCloseHook registers a callback executed exactly once when the session
// closes, regardless of who initiated the close.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

// Send enqueues the event and reports whether the session accepted it.
func (c *Client) Send(event *domain.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("event marshal error", slog.String("event", event.Event), slog.Any("error", err))
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		slog.Warn("session send buffer full", slog.String("connectionId", c.id), slog.String("userId", c.userID))
		go c.Close()
		return false
	}
}

// Close shuts the session down once; safe to call from any goroutine. The
// send channel stays open so concurrent Send calls can never panic; WritePump
// exits through the done channel instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		c.invokeCloseHooks()
	})
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("session close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// WritePump drains the send channel onto the wire and keeps the peer alive
// with pings. Runs on its own goroutine per session.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("connectionId", c.id), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("websocket ping error", slog.String("connectionId", c.id), slog.Any("error", err))
				return
			}
		}
	}
}

// ReadPump consumes inbound frames until the peer goes away, then closes the
// session so the close hooks run the disconnect cascade.
func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	defer c.Close()
	for {
		var cmd Command
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("connectionId", c.id), slog.String("userId", c.userID), slog.Any("error", err))
			}
			return
		}
		if c.onActivity != nil {
			c.onActivity()
		}
		if c.router != nil {
			c.router.Process(c, cmd)
		}
	}
}
