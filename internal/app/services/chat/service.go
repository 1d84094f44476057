package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

// EventPublisher pushes domain events to the broker. Implementations must be
// safe for concurrent use; a nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Service owns conversation bootstrap and the message sequence of each thread.
type Service struct {
	Conversations domainchat.Repository
	Listings      domainlisting.Repository
	Users         domainuser.Repository
	Events        EventPublisher
	TopicPrefix   string
	Logger        *slog.Logger
}

// ConversationSummary is the landlord-side inbox row: the thread plus the
// listing and counterpart details the UI renders.
type ConversationSummary struct {
	Conversation  *domainchat.Conversation
	ListingTitle  string
	ListingPrice  float64
	InitiatorName string
	LastMessage   *domainchat.Message
	UnreadCount   int64
}

// Start returns the conversation between the caller and the listing owner,
// creating it on first contact. Calling it again for the same pair yields the
// same thread.
func (s *Service) Start(ctx context.Context, caller domainuser.ID, listingID domainlisting.ID) (*domainchat.Conversation, error) {
	l, err := s.Listings.ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID == caller {
		return nil, domainchat.ErrSelfConversation
	}
	conv, err := s.Conversations.FindOrCreateConversation(ctx, listingID, caller, l.OwnerID)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("conversation resolved", "conversation_id", conv.ID, "listing_id", listingID, "user_id", caller)
	}
	return conv, nil
}

// Messages returns the full ordered history of a conversation the reader
// participates in.
func (s *Service) Messages(ctx context.Context, reader domainuser.ID, id domainchat.ConversationID) ([]*domainchat.Message, error) {
	conv, err := s.Conversations.ConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(reader) {
		return nil, domainchat.ErrNotParticipant
	}
	return s.Conversations.MessagesAscending(ctx, id)
}

// Append validates, persists and returns the stored message. The returned
// copy carries the repository-assigned id and is what gets broadcast to the
// live channels.
func (s *Service) Append(ctx context.Context, sender domainuser.ID, id domainchat.ConversationID, kind, content string) (*domainchat.Message, error) {
	conv, err := s.Conversations.ConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(sender) {
		return nil, domainchat.ErrNotParticipant
	}
	msg, err := domainchat.NewMessage(domainchat.NewMessageParams{
		ConversationID: id,
		SenderID:       sender,
		Type:           kind,
		Content:        content,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Conversations.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.publishMessageSent(ctx, msg)
	return msg, nil
}

// Inbox lists the caller's landlord-side conversations with listing context,
// the latest message and an unread counter.
func (s *Service) Inbox(ctx context.Context, owner domainuser.ID) ([]*ConversationSummary, error) {
	conversations, err := s.Conversations.ConversationsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	summaries := make([]*ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary := &ConversationSummary{Conversation: conv}
		if l, err := s.Listings.ByID(ctx, conv.ListingID); err == nil {
			summary.ListingTitle = l.Title
			summary.ListingPrice = l.Price
		}
		if initiator, err := s.Users.ByID(ctx, conv.InitiatorID); err == nil {
			summary.InitiatorName = initiator.Name
		}
		if last, err := s.Conversations.LastMessage(ctx, conv.ID); err == nil {
			summary.LastMessage = last
		}
		if unread, err := s.Conversations.CountUnread(ctx, conv.ID, owner); err == nil {
			summary.UnreadCount = unread
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

type messageSentEvent struct {
	EventID        string    `json:"eventId"`
	ConversationID int64     `json:"conversationId"`
	MessageID      int64     `json:"messageId"`
	SenderID       int64     `json:"senderId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Service) publishMessageSent(ctx context.Context, msg *domainchat.Message) {
	if s.Events == nil {
		return
	}
	payload, err := json.Marshal(messageSentEvent{
		EventID:        uuid.NewString(),
		ConversationID: int64(msg.ConversationID),
		MessageID:      int64(msg.ID),
		SenderID:       int64(msg.SenderID),
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return
	}
	topic := s.TopicPrefix + "chat.message.sent"
	if err := s.Events.Publish(ctx, topic, uuid.NewString(), payload); err != nil && s.Logger != nil {
		s.Logger.Warn("chat event publish failed", "topic", topic, "error", err)
	}
}
