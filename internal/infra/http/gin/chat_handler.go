package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"rentline/internal/app/dto"
	chatsvc "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
)

type ChatHTTP interface {
	Start(c *gin.Context)
	Messages(c *gin.Context)
	Conversations(c *gin.Context)
}

type ChatHandler struct {
	Service *chatsvc.Service
	Logger  *slog.Logger
}

// Start resolves the caller's conversation for a listing, creating it on
// first contact. Repeated calls return the same conversation.
func (h ChatHandler) Start(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	propertyID, err := strconv.ParseInt(c.Param("propertyId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}
	conv, err := h.Service.Start(c.Request.Context(), p.User.ID, domainlisting.ID(propertyID))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewConversation(conv))
}

func (h ChatHandler) Messages(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	messages, err := h.Service.Messages(c.Request.Context(), p.User.ID, domainchat.ConversationID(id))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMessageList(messages))
}

func (h ChatHandler) Conversations(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	summaries, err := h.Service.Inbox(c.Request.Context(), p.User.ID)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewConversationList(summaries))
}

func (h ChatHandler) respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainchat.ErrSelfConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation on your own property"})
	case errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this conversation"})
	case errors.Is(err, domainchat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
