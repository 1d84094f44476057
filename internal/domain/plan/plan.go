package plan

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentline/internal/domain/user"
)

var (
	ErrInvalidPlanType = errors.New("plan: invalid plan type")
	ErrNotFound        = errors.New("plan: not found")
)

type Type string

const (
	TypeFree      Type = "free"
	TypePremium   Type = "premium"
	TypeUnlimited Type = "unlimited"
)

const (
	freeMaxListings    = 3
	premiumMaxListings = 10
	// Unlimited keeps a concrete bound so limit checks stay uniform.
	unlimitedMaxListings = 999999
)

type Plan struct {
	ID          int64
	UserID      user.ID
	Type        Type
	MaxListings int
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Plan) CanCreateMore(active int64) bool {
	return active < int64(p.MaxListings)
}

type Repository interface {
	ByUser(ctx context.Context, id user.ID) (*Plan, error)
	Save(ctx context.Context, p *Plan) error
}

// DefaultFree is the plan every user starts on.
func DefaultFree(userID user.ID, now time.Time) *Plan {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Plan{
		UserID:      userID,
		Type:        TypeFree,
		MaxListings: freeMaxListings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ParseUpgrade(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypePremium:
		return TypePremium, nil
	case TypeUnlimited:
		return TypeUnlimited, nil
	default:
		return "", ErrInvalidPlanType
	}
}

// Upgrade switches the plan type and extends it by one month.
func (p *Plan) Upgrade(target Type, now time.Time) error {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	switch target {
	case TypePremium:
		p.MaxListings = premiumMaxListings
	case TypeUnlimited:
		p.MaxListings = unlimitedMaxListings
	default:
		return ErrInvalidPlanType
	}
	expires := now.AddDate(0, 1, 0)
	p.Type = target
	p.ExpiresAt = &expires
	p.UpdatedAt = now
	return nil
}
