package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentline/internal/domain/listing"
	"rentline/internal/domain/user"
)

var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrSelfConversation     = errors.New("chat: cannot start a conversation with yourself")
	ErrNotParticipant       = errors.New("chat: not a conversation participant")
	ErrEmptyContent         = errors.New("chat: message content is empty")
)

type ConversationID int64

type MessageID int64

// MessageTypeText is the only message kind currently delivered.
const MessageTypeText = "text"

// Conversation is a thread between the user who contacted a listing and the
// listing owner. Exactly one exists per (initiator, listing) pair.
type Conversation struct {
	ID          ConversationID
	ListingID   listing.ID
	InitiatorID user.ID
	OwnerID     user.ID
	CreatedAt   time.Time
}

func (c *Conversation) HasParticipant(id user.ID) bool {
	return c.InitiatorID == id || c.OwnerID == id
}

// Message belongs to exactly one conversation and is immutable once stored.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Type           string
	Content        string
	CreatedAt      time.Time
}

type NewMessageParams struct {
	ConversationID ConversationID
	SenderID       user.ID
	Type           string
	Content        string
	CreatedAt      time.Time
}

func NewMessage(params NewMessageParams) (*Message, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	kind := strings.TrimSpace(params.Type)
	if kind == "" {
		kind = MessageTypeText
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Type:           kind,
		Content:        content,
		CreatedAt:      now.UTC(),
	}, nil
}

type Repository interface {
	// FindOrCreateConversation returns the existing thread for the pair bound
	// to the listing, creating it when absent. Must be idempotent.
	FindOrCreateConversation(ctx context.Context, listingID listing.ID, initiator, owner user.ID) (*Conversation, error)
	ConversationByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ConversationsByOwner(ctx context.Context, owner user.ID) ([]*Conversation, error)
	AppendMessage(ctx context.Context, msg *Message) error
	MessagesAscending(ctx context.Context, id ConversationID) ([]*Message, error)
	LastMessage(ctx context.Context, id ConversationID) (*Message, error)
	CountUnread(ctx context.Context, id ConversationID, reader user.ID) (int64, error)
}
