package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainplan "rentline/internal/domain/plan"
	domainuser "rentline/internal/domain/user"
)

type PlanRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) *PlanRepository {
	return &PlanRepository{db: db, col: db.Collection("plans")}
}

func (r *PlanRepository) ByUser(ctx context.Context, id domainuser.ID) (*domainplan.Plan, error) {
	var doc planDocument
	if err := r.col.FindOne(ctx, bson.M{"user_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainplan.ErrNotFound
		}
		return nil, err
	}
	return doc.toPlan(), nil
}

// Save upserts on user id, one plan per user.
func (r *PlanRepository) Save(ctx context.Context, p *domainplan.Plan) error {
	if p.ID == 0 {
		id, err := nextSequence(ctx, r.db, "plans")
		if err != nil {
			return err
		}
		p.ID = id
	}
	doc := newPlanDocument(p)
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": doc.UserID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

type planDocument struct {
	ID          int64  `bson:"_id"`
	UserID      int64  `bson:"user_id"`
	Type        string `bson:"type"`
	MaxListings int    `bson:"max_listings"`
	ExpiresAt   *int64 `bson:"expires_at,omitempty"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

func newPlanDocument(p *domainplan.Plan) planDocument {
	doc := planDocument{
		ID:          p.ID,
		UserID:      int64(p.UserID),
		Type:        string(p.Type),
		MaxListings: p.MaxListings,
		CreatedAt:   p.CreatedAt.UnixMilli(),
		UpdatedAt:   p.UpdatedAt.UnixMilli(),
	}
	if p.ExpiresAt != nil {
		ms := p.ExpiresAt.UnixMilli()
		doc.ExpiresAt = &ms
	}
	return doc
}

func (d planDocument) toPlan() *domainplan.Plan {
	p := &domainplan.Plan{
		ID:          d.ID,
		UserID:      domainuser.ID(d.UserID),
		Type:        domainplan.Type(d.Type),
		MaxListings: d.MaxListings,
		CreatedAt:   millisToTime(d.CreatedAt),
		UpdatedAt:   millisToTime(d.UpdatedAt),
	}
	if d.ExpiresAt != nil {
		t := millisToTime(*d.ExpiresAt)
		p.ExpiresAt = &t
	}
	return p
}

var _ domainplan.Repository = (*PlanRepository)(nil)
