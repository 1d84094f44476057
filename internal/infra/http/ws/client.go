package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rentline/internal/app/dto"
	domainchat "rentline/internal/domain/chat"
	domainuser "rentline/internal/domain/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameLength = 8 * 1024
)

// inboundFrame is what a peer may push over the live channel.
type inboundFrame func(userID domainuser.ID, conversationID domainchat.ConversationID, frame dto.OutboundFrame)

type client struct {
	conn           *websocket.Conn
	hub            *Hub
	conversationID domainchat.ConversationID
	userID         domainuser.ID
	onFrame        inboundFrame
	send           chan []byte
	done           chan struct{}
	closeOnce      sync.Once
}

func newClient(h *Hub, conversationID domainchat.ConversationID, userID domainuser.ID, conn *websocket.Conn, onFrame inboundFrame) *client {
	return &client{
		conn:           conn,
		hub:            h,
		conversationID: conversationID,
		userID:         userID,
		onFrame:        onFrame,
		send:           make(chan []byte, 256),
		done:           make(chan struct{}),
	}
}

func (c *client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxFrameLength)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame dto.OutboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if c.onFrame != nil {
			c.onFrame(c.userID, c.conversationID, frame)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close removes the client from its room and signals both pumps. The send
// channel is never closed: a broadcast holding a stale room snapshot may still
// attempt delivery after the client has left.
func (c *client) close() {
	c.closeOnce.Do(func() {
		c.hub.leave(c.conversationID, c)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
