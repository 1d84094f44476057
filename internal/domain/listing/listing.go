package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentline/internal/domain/user"
)

var (
	ErrTitleRequired   = errors.New("listing: title is required")
	ErrAddressRequired = errors.New("listing: address is required")
	ErrInvalidPrice    = errors.New("listing: price must be positive")
	ErrNotFound        = errors.New("listing: not found")
	ErrAlreadyPromoted = errors.New("listing: promotion already active")
)

type ID int64

// Visibility controls catalog exposure.
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

type Listing struct {
	ID            ID
	OwnerID       user.ID
	Title         string
	Description   string
	Price         float64
	PriceType     string
	City          string
	Address       string
	Lat           float64
	Lng           float64
	Rooms         int
	Area          int
	Amenities     string
	PropertyType  string
	ContactPhone  string
	ContactEmail  string
	IsUrgent      bool
	Visibility    string
	PromotedUntil time.Time
	CreatedAt     time.Time
	Images        []Image
}

type Image struct {
	ID        int64
	ListingID ID
	URL       string
	Order     int
}

// Filter narrows catalog queries. Zero value means no filtering.
type Filter struct {
	City string
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Listing, error)
	ByOwner(ctx context.Context, owner user.ID) ([]*Listing, error)
	Catalog(ctx context.Context, filter Filter) ([]*Listing, error)
	Create(ctx context.Context, l *Listing) error
	AttachImage(ctx context.Context, img *Image) error
	SetPromotion(ctx context.Context, id ID, until time.Time) error
	CountByOwner(ctx context.Context, owner user.ID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type CreateParams struct {
	OwnerID      user.ID
	Title        string
	Description  string
	Price        float64
	PriceType    string
	City         string
	Address      string
	Lat          float64
	Lng          float64
	Rooms        int
	Area         int
	Amenities    []string
	PropertyType string
	ContactPhone string
	ContactEmail string
	IsUrgent     bool
	Visibility   string
	CreatedAt    time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	address := strings.TrimSpace(params.Address)
	if address == "" {
		return nil, ErrAddressRequired
	}
	if params.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	visibility := strings.TrimSpace(params.Visibility)
	if visibility != VisibilityHidden {
		visibility = VisibilityPublic
	}
	priceType := strings.TrimSpace(params.PriceType)
	if priceType == "" {
		priceType = "month"
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Listing{
		OwnerID:      params.OwnerID,
		Title:        title,
		Description:  strings.TrimSpace(params.Description),
		Price:        params.Price,
		PriceType:    priceType,
		City:         strings.TrimSpace(params.City),
		Address:      address,
		Lat:          params.Lat,
		Lng:          params.Lng,
		Rooms:        params.Rooms,
		Area:         params.Area,
		Amenities:    strings.Join(params.Amenities, ","),
		PropertyType: strings.TrimSpace(params.PropertyType),
		ContactPhone: strings.TrimSpace(params.ContactPhone),
		ContactEmail: strings.TrimSpace(params.ContactEmail),
		IsUrgent:     params.IsUrgent,
		Visibility:   visibility,
		CreatedAt:    now.UTC(),
	}, nil
}

func (l *Listing) Public() bool {
	return l.Visibility == VisibilityPublic
}

// Promoted reports whether the listing carries an active promotion at now.
func (l *Listing) Promoted(now time.Time) bool {
	return l.PromotedUntil.After(now)
}
