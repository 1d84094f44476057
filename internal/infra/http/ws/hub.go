package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	domainchat "rentline/internal/domain/chat"
)

// Hub tracks the live connections of every conversation and fans stored
// messages out to them. Senders receive their own echo; clients rely on it
// instead of appending locally.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[domainchat.ConversationID]map[*client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[domainchat.ConversationID]map[*client]bool),
		logger: logger,
	}
}

func (h *Hub) join(id domainchat.ConversationID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[id] == nil {
		h.rooms[id] = make(map[*client]bool)
	}
	h.rooms[id][c] = true
}

func (h *Hub) leave(id domainchat.ConversationID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := h.rooms[id]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// Broadcast delivers the payload to every connection on the conversation.
// Slow consumers whose buffers are full get disconnected rather than stalling
// the room. The room is snapshot under the read lock, so a client may leave
// while a delivery to it is still pending; the done case covers that window.
func (h *Hub) Broadcast(id domainchat.ConversationID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("broadcast encode failed", "conversation_id", id, "error", err)
		}
		return
	}
	h.mu.RLock()
	conns := make([]*client, 0, len(h.rooms[id]))
	for c := range h.rooms[id] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		select {
		case c.send <- data:
		case <-c.done:
		default:
			go c.close()
		}
	}
}

// RoomSize reports how many connections a conversation currently has.
func (h *Hub) RoomSize(id domainchat.ConversationID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[id])
}
