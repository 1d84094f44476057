package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

type ChatRepository struct {
	db            *mongo.Database
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{
		db:            db,
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

// FindOrCreateConversation relies on a unique index over
// (listing_id, pair_low, pair_high) so concurrent first contacts collapse to a
// single thread. The pair is stored ordered to make the lookup symmetric.
func (r *ChatRepository) FindOrCreateConversation(ctx context.Context, listingID domainlisting.ID, initiator, owner domainuser.ID) (*domainchat.Conversation, error) {
	low, high := int64(initiator), int64(owner)
	if low > high {
		low, high = high, low
	}
	filter := bson.M{"listing_id": int64(listingID), "pair_low": low, "pair_high": high}

	var doc conversationDocument
	err := r.conversations.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return doc.toConversation(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	id, err := nextSequence(ctx, r.db, "conversations")
	if err != nil {
		return nil, err
	}
	doc = conversationDocument{
		ID:          id,
		ListingID:   int64(listingID),
		InitiatorID: int64(initiator),
		OwnerID:     int64(owner),
		PairLow:     low,
		PairHigh:    high,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if _, err := r.conversations.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race; the winner's thread is the canonical one.
			if err := r.conversations.FindOne(ctx, filter).Decode(&doc); err != nil {
				return nil, err
			}
			return doc.toConversation(), nil
		}
		return nil, err
	}
	return doc.toConversation(), nil
}

func (r *ChatRepository) ConversationByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.conversations.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toConversation(), nil
}

func (r *ChatRepository) ConversationsByOwner(ctx context.Context, owner domainuser.ID) ([]*domainchat.Conversation, error) {
	cur, err := r.conversations.Find(ctx,
		bson.M{"owner_id": int64(owner)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainchat.Conversation
	for cur.Next(ctx) {
		var doc conversationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toConversation())
	}
	return out, cur.Err()
}

func (r *ChatRepository) AppendMessage(ctx context.Context, msg *domainchat.Message) error {
	id, err := nextSequence(ctx, r.db, "messages")
	if err != nil {
		return err
	}
	msg.ID = domainchat.MessageID(id)
	_, err = r.messages.InsertOne(ctx, newMessageDocument(msg))
	return err
}

func (r *ChatRepository) MessagesAscending(ctx context.Context, id domainchat.ConversationID) ([]*domainchat.Message, error) {
	cur, err := r.messages.Find(ctx,
		bson.M{"conversation_id": int64(id)},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainchat.Message
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toMessage())
	}
	return out, cur.Err()
}

func (r *ChatRepository) LastMessage(ctx context.Context, id domainchat.ConversationID) (*domainchat.Message, error) {
	var doc messageDocument
	err := r.messages.FindOne(ctx,
		bson.M{"conversation_id": int64(id)},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toMessage(), nil
}

func (r *ChatRepository) CountUnread(ctx context.Context, id domainchat.ConversationID, reader domainuser.ID) (int64, error) {
	return r.messages.CountDocuments(ctx, bson.M{
		"conversation_id": int64(id),
		"sender_id":       bson.M{"$ne": int64(reader)},
		"read":            false,
	})
}

// EnsureIndexes creates the uniqueness and lookup indexes the repository
// depends on. Call once at startup.
func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "pair_low", Value: 1},
			{Key: "pair_high", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

type conversationDocument struct {
	ID          int64 `bson:"_id"`
	ListingID   int64 `bson:"listing_id"`
	InitiatorID int64 `bson:"initiator_id"`
	OwnerID     int64 `bson:"owner_id"`
	PairLow     int64 `bson:"pair_low"`
	PairHigh    int64 `bson:"pair_high"`
	CreatedAt   int64 `bson:"created_at"`
}

func (d conversationDocument) toConversation() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:          domainchat.ConversationID(d.ID),
		ListingID:   domainlisting.ID(d.ListingID),
		InitiatorID: domainuser.ID(d.InitiatorID),
		OwnerID:     domainuser.ID(d.OwnerID),
		CreatedAt:   millisToTime(d.CreatedAt),
	}
}

type messageDocument struct {
	ID             int64  `bson:"_id"`
	ConversationID int64  `bson:"conversation_id"`
	SenderID       int64  `bson:"sender_id"`
	Type           string `bson:"type"`
	Content        string `bson:"content"`
	Read           bool   `bson:"read"`
	CreatedAt      int64  `bson:"created_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	return messageDocument{
		ID:             int64(m.ID),
		ConversationID: int64(m.ConversationID),
		SenderID:       int64(m.SenderID),
		Type:           m.Type,
		Content:        m.Content,
		Read:           false,
		CreatedAt:      m.CreatedAt.UnixMilli(),
	}
}

func (d messageDocument) toMessage() *domainchat.Message {
	return &domainchat.Message{
		ID:             domainchat.MessageID(d.ID),
		ConversationID: domainchat.ConversationID(d.ConversationID),
		SenderID:       domainuser.ID(d.SenderID),
		Type:           d.Type,
		Content:        d.Content,
		CreatedAt:      millisToTime(d.CreatedAt),
	}
}

var _ domainchat.Repository = (*ChatRepository)(nil)
