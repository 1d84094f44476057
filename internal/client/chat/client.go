// Package chat implements the realtime side of a conversation: bootstrap,
// history load and the live websocket channel for message delivery.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rentline/internal/app/dto"
	"rentline/internal/client/api"
)

var (
	ErrNotOpen       = errors.New("chat: conversation is not open")
	ErrAlreadyOpen   = errors.New("chat: conversation is already open")
	ErrNotAuthorized = errors.New("chat: no credential for live channel")
)

const dialTimeout = 10 * time.Second

// MessageHandler observes every inbound message after it has been appended to
// the local cache.
type MessageHandler func(dto.Message)

// Client drives one conversation. Open bootstraps the thread, loads history
// and connects the live channel; Send transmits frames; Close tears the
// channel down. A Client is not reusable after Close; reopening a
// conversation is a fresh Client.
type Client struct {
	api     *api.Client
	logger  *slog.Logger
	handler MessageHandler

	mu           sync.Mutex
	conn         *websocket.Conn
	conversation *dto.Conversation
	messages     []dto.Message
	open         bool
	closed       bool
	started      bool
	closeErr     error
	done         chan struct{}
	inHandler    atomic.Bool
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// OnMessage registers the inbound handler. Must be called before Open.
func OnMessage(h MessageHandler) Option {
	return func(c *Client) { c.handler = h }
}

func New(apiClient *api.Client, opts ...Option) *Client {
	c := &Client{api: apiClient, done: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open creates-or-fetches the conversation for the property, loads the
// ordered history, then dials the live channel with the current credential
// passed as a query parameter (the websocket handshake cannot carry the
// bearer header).
func (c *Client) Open(ctx context.Context, propertyID int64) error {
	c.mu.Lock()
	if c.open || c.closed {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.mu.Unlock()

	conversation, err := c.api.StartConversation(ctx, propertyID)
	if err != nil {
		return err
	}
	history, err := c.api.ListMessages(ctx, conversation.ID)
	if err != nil {
		return err
	}
	token, ok := c.api.Session().Token()
	if !ok {
		return ErrNotAuthorized
	}

	wsURL, err := liveChannelURL(c.api.BaseURL(), conversation.ID, token)
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Jar:              c.api.HTTPClient().Jar,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("chat: connect live channel: %w", err)
	}

	c.mu.Lock()
	c.conversation = conversation
	c.messages = append([]dto.Message(nil), history...)
	c.conn = conn
	c.open = true
	c.started = true
	c.mu.Unlock()

	go c.readLoop(conn)
	if c.logger != nil {
		c.logger.Debug("live channel open", "conversation_id", conversation.ID)
	}
	return nil
}

// Conversation returns the bootstrapped thread metadata.
func (c *Client) Conversation() *dto.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversation
}

// Messages returns a snapshot of the local ordered cache: history first, then
// live messages in arrival order.
func (c *Client) Messages() []dto.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dto.Message(nil), c.messages...)
}

// Send transmits a text frame. Whitespace-only content is rejected before any
// I/O and is a silent no-op. The message is NOT appended locally; the
// authoritative copy arrives back on the inbound channel.
func (c *Client) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.closed {
		return ErrNotOpen
	}
	frame := dto.OutboundFrame{Type: "text", Content: strings.TrimSpace(content)}
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("chat: send frame: %w", err)
	}
	return nil
}

// Close terminates the live channel. After Close returns no handler fires
// for any later frame and the cached state is gone; there is no automatic
// reconnect. Close is safe to call from inside the OnMessage handler: it then
// skips waiting for the read loop, since that loop is the caller.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.open = false
	conn := c.conn
	started := c.started
	c.conn = nil
	c.messages = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if started && !c.inHandler.Load() {
		<-c.done
	}
	return nil
}

// Err reports why the channel ended, if it ended on a transport error rather
// than a local Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Done is closed once the read loop has exited.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.done)
	for {
		var msg dto.Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			if !c.closed {
				c.closed = true
				c.open = false
				c.closeErr = err
				_ = conn.Close()
			}
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		// Arrival order, append-only. No dedup: locally-sent messages
		// are reconciled through this same path as server echoes.
		c.messages = append(c.messages, msg)
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			c.inHandler.Store(true)
			handler(msg)
			c.inHandler.Store(false)
		}
	}
}

func liveChannelURL(base string, conversationID int64, token string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("chat: parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + fmt.Sprintf("/ws/chat/%d", conversationID)
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
