package dto

import (
	"time"

	domainlisting "rentline/internal/domain/listing"
)

type Listing struct {
	ID                 int64          `json:"id"`
	OwnerID            int64          `json:"ownerId"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Price              float64        `json:"price"`
	PriceType          string         `json:"priceType"`
	City               string         `json:"city"`
	Address            string         `json:"address"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	Rooms              int            `json:"rooms"`
	Area               int            `json:"area"`
	Amenities          string         `json:"amenities"`
	PropertyType       string         `json:"propertyType"`
	Phone              string         `json:"phone"`
	Email              string         `json:"email"`
	IsUrgent           bool           `json:"isUrgent"`
	Visibility         string         `json:"visibility"`
	IsPromoted         bool           `json:"isPromoted"`
	PromotionExpiresAt *time.Time     `json:"promotionExpiresAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	Images             []ListingImage `json:"images"`
}

type ListingImage struct {
	ID        int64  `json:"id"`
	ListingID int64  `json:"propertyId"`
	URL       string `json:"url"`
	Order     int    `json:"order"`
}

func NewListing(l *domainlisting.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	images := make([]ListingImage, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, ListingImage{
			ID:        img.ID,
			ListingID: int64(img.ListingID),
			URL:       img.URL,
			Order:     img.Order,
		})
	}
	var promotionExpiresAt *time.Time
	if l.Promoted(time.Now()) {
		until := l.PromotedUntil
		promotionExpiresAt = &until
	}
	return Listing{
		ID:                 int64(l.ID),
		OwnerID:            int64(l.OwnerID),
		Title:              l.Title,
		Description:        l.Description,
		Price:              l.Price,
		PriceType:          l.PriceType,
		City:               l.City,
		Address:            l.Address,
		Lat:                l.Lat,
		Lng:                l.Lng,
		Rooms:              l.Rooms,
		Area:               l.Area,
		Amenities:          l.Amenities,
		PropertyType:       l.PropertyType,
		Phone:              l.ContactPhone,
		Email:              l.ContactEmail,
		IsUrgent:           l.IsUrgent,
		Visibility:         l.Visibility,
		IsPromoted:         promotionExpiresAt != nil,
		PromotionExpiresAt: promotionExpiresAt,
		CreatedAt:          l.CreatedAt,
		Images:             images,
	}
}

// PromotionResult confirms a promotion purchase.
type PromotionResult struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewListings(items []*domainlisting.Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, l := range items {
		out = append(out, NewListing(l))
	}
	return out
}
