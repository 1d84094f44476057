package dto

import (
	"time"

	chatsvc "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
)

type Conversation struct {
	ID          int64     `json:"id"`
	PropertyID  int64     `json:"propertyId"`
	InitiatorID int64     `json:"initiatorId"`
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewConversation(c *domainchat.Conversation) Conversation {
	if c == nil {
		return Conversation{}
	}
	return Conversation{
		ID:          int64(c.ID),
		PropertyID:  int64(c.ListingID),
		InitiatorID: int64(c.InitiatorID),
		OwnerID:     int64(c.OwnerID),
		CreatedAt:   c.CreatedAt,
	}
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewMessage(m *domainchat.Message) Message {
	if m == nil {
		return Message{}
	}
	return Message{
		ID:             int64(m.ID),
		ConversationID: int64(m.ConversationID),
		SenderID:       int64(m.SenderID),
		Type:           m.Type,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

type MessageList struct {
	Items []Message `json:"items"`
}

func NewMessageList(items []*domainchat.Message) MessageList {
	list := MessageList{Items: make([]Message, 0, len(items))}
	for _, m := range items {
		list.Items = append(list.Items, NewMessage(m))
	}
	return list
}

// ConversationSummary is one row of the landlord inbox.
type ConversationSummary struct {
	ID            int64    `json:"id"`
	PropertyID    int64    `json:"propertyId"`
	PropertyTitle string   `json:"propertyTitle"`
	PropertyPrice float64  `json:"propertyPrice"`
	InitiatorID   int64    `json:"initiatorId"`
	OwnerID       int64    `json:"ownerId"`
	InitiatorName string   `json:"initiatorName"`
	LastMessage   *Message `json:"lastMessage,omitempty"`
	UnreadCount   int64    `json:"unreadCount"`
}

type ConversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
}

func NewConversationList(summaries []*chatsvc.ConversationSummary) ConversationList {
	list := ConversationList{Conversations: make([]ConversationSummary, 0, len(summaries))}
	for _, s := range summaries {
		row := ConversationSummary{
			ID:            int64(s.Conversation.ID),
			PropertyID:    int64(s.Conversation.ListingID),
			PropertyTitle: s.ListingTitle,
			PropertyPrice: s.ListingPrice,
			InitiatorID:   int64(s.Conversation.InitiatorID),
			OwnerID:       int64(s.Conversation.OwnerID),
			InitiatorName: s.InitiatorName,
			UnreadCount:   s.UnreadCount,
		}
		if s.LastMessage != nil {
			last := NewMessage(s.LastMessage)
			row.LastMessage = &last
		}
		list.Conversations = append(list.Conversations, row)
	}
	return list
}

// OutboundFrame is what a live-channel peer sends; inbound delivery is the
// full Message shape.
type OutboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
