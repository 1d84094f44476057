package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentline/internal/app/services/auth"
	domainuser "rentline/internal/domain/user"
)

// RefreshTokenStore persists opaque refresh tokens keyed by their value. A TTL
// index lets Mongo expire stale sessions on its own; Lookup still checks the
// deadline so expiry does not depend on the reaper having run.
type RefreshTokenStore struct {
	col *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) *RefreshTokenStore {
	return &RefreshTokenStore{col: db.Collection("refresh_tokens")}
}

func (s *RefreshTokenStore) Save(ctx context.Context, token string, userID domainuser.ID, expiresAt time.Time) error {
	_, err := s.col.InsertOne(ctx, refreshTokenDocument{
		Token:     token,
		UserID:    int64(userID),
		ExpiresAt: expiresAt.UTC(),
	})
	return err
}

func (s *RefreshTokenStore) Lookup(ctx context.Context, token string) (domainuser.ID, error) {
	var doc refreshTokenDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, auth.ErrRefreshTokenInvalid
		}
		return 0, err
	}
	if time.Now().After(doc.ExpiresAt) {
		return 0, auth.ErrRefreshTokenInvalid
	}
	return domainuser.ID(doc.UserID), nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, token string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": token})
	return err
}

func (s *RefreshTokenStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

type refreshTokenDocument struct {
	Token     string    `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var _ auth.RefreshTokenStore = (*RefreshTokenStore)(nil)
