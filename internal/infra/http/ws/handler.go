package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rentline/internal/app/dto"
	"rentline/internal/app/services/auth"
	chatsvc "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
	domainuser "rentline/internal/domain/user"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades /ws/chat/:conversationId requests. The credential arrives
// as a query parameter because the browser websocket API cannot set headers.
type Handler struct {
	Hub    *Hub
	Auth   *auth.Service
	Chat   *chatsvc.Service
	Logger *slog.Logger
}

func (h Handler) Serve(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.Auth.ResolveAccess(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	id := domainchat.ConversationID(conversationID)
	if _, err := h.Chat.Messages(c.Request.Context(), user.ID, id); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}

	peer := newClient(h.Hub, id, user.ID, conn, h.handleFrame)
	h.Hub.join(id, peer)
	if h.Logger != nil {
		h.Logger.Debug("live channel joined", "conversation_id", id, "user_id", user.ID)
	}
	go peer.writePump()
	go peer.readPump()
}

// handleFrame persists an inbound frame and broadcasts the stored message to
// the room. Invalid or empty frames are dropped.
func (h Handler) handleFrame(userID domainuser.ID, conversationID domainchat.ConversationID, frame dto.OutboundFrame) {
	msg, err := h.Chat.Append(context.Background(), userID, conversationID, frame.Type, frame.Content)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("inbound frame rejected", "conversation_id", conversationID, "user_id", userID, "error", err)
		}
		return
	}
	h.Hub.Broadcast(conversationID, dto.NewMessage(msg))
}
