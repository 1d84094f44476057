package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

type pairKey struct {
	listing domainlisting.ID
	a, b    domainuser.ID
}

// ChatRepository stores conversations and their message sequences in memory.
type ChatRepository struct {
	mu            sync.RWMutex
	nextConvID    domainchat.ConversationID
	nextMessageID domainchat.MessageID
	conversations map[domainchat.ConversationID]*domainchat.Conversation
	byPair        map[pairKey]domainchat.ConversationID
	messages      map[domainchat.ConversationID][]*domainchat.Message
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		nextConvID:    1,
		nextMessageID: 1,
		conversations: make(map[domainchat.ConversationID]*domainchat.Conversation),
		byPair:        make(map[pairKey]domainchat.ConversationID),
		messages:      make(map[domainchat.ConversationID][]*domainchat.Message),
	}
}

func (r *ChatRepository) FindOrCreateConversation(ctx context.Context, listingID domainlisting.ID, initiator, owner domainuser.ID) (*domainchat.Conversation, error) {
	key := normalizePair(listingID, initiator, owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPair[key]; ok {
		return cloneConversation(r.conversations[id]), nil
	}
	conv := &domainchat.Conversation{
		ID:          r.nextConvID,
		ListingID:   listingID,
		InitiatorID: initiator,
		OwnerID:     owner,
		CreatedAt:   time.Now().UTC(),
	}
	r.nextConvID++
	r.conversations[conv.ID] = conv
	r.byPair[key] = conv.ID
	return cloneConversation(conv), nil
}

func (r *ChatRepository) ConversationByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conv, ok := r.conversations[id]; ok {
		return cloneConversation(conv), nil
	}
	return nil, domainchat.ErrConversationNotFound
}

func (r *ChatRepository) ConversationsByOwner(ctx context.Context, owner domainuser.ID) ([]*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domainchat.Conversation
	for _, conv := range r.conversations {
		if conv.OwnerID == owner {
			result = append(result, cloneConversation(conv))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, msg *domainchat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[msg.ConversationID]; !ok {
		return domainchat.ErrConversationNotFound
	}
	msg.ID = r.nextMessageID
	r.nextMessageID++
	stored := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &stored)
	return nil
}

func (r *ChatRepository) MessagesAscending(ctx context.Context, id domainchat.ConversationID) ([]*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.conversations[id]; !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	seq := r.messages[id]
	result := make([]*domainchat.Message, 0, len(seq))
	for _, m := range seq {
		copyMsg := *m
		result = append(result, &copyMsg)
	}
	return result, nil
}

func (r *ChatRepository) LastMessage(ctx context.Context, id domainchat.ConversationID) (*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq := r.messages[id]
	if len(seq) == 0 {
		return nil, nil
	}
	copyMsg := *seq[len(seq)-1]
	return &copyMsg, nil
}

// CountUnread counts the messages the counterpart sent. Nothing marks
// messages read yet, so every message from the other side counts.
func (r *ChatRepository) CountUnread(ctx context.Context, id domainchat.ConversationID, reader domainuser.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.messages[id] {
		if m.SenderID != reader {
			n++
		}
	}
	return n, nil
}

// normalizePair keys the conversation by listing plus the unordered user pair,
// so initiator/owner call order cannot create duplicates.
func normalizePair(listingID domainlisting.ID, a, b domainuser.ID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{listing: listingID, a: a, b: b}
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	copyConv := *c
	return &copyConv
}
