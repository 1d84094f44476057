package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

type ListingRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{db: db, col: db.Collection("listings")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrNotFound
		}
		return nil, err
	}
	return doc.toListing(), nil
}

func (r *ListingRepository) ByOwner(ctx context.Context, owner domainuser.ID) ([]*domainlisting.Listing, error) {
	return r.find(ctx, bson.M{"owner_id": int64(owner)})
}

func (r *ListingRepository) Catalog(ctx context.Context, filter domainlisting.Filter) ([]*domainlisting.Listing, error) {
	query := bson.M{"visibility": domainlisting.VisibilityPublic}
	if filter.City != "" {
		query["city"] = filter.City
	}
	return r.find(ctx, query)
}

func (r *ListingRepository) Create(ctx context.Context, l *domainlisting.Listing) error {
	id, err := nextSequence(ctx, r.db, "listings")
	if err != nil {
		return err
	}
	l.ID = domainlisting.ID(id)
	_, err = r.col.InsertOne(ctx, newListingDocument(l))
	return err
}

func (r *ListingRepository) AttachImage(ctx context.Context, img *domainlisting.Image) error {
	id, err := nextSequence(ctx, r.db, "listing_images")
	if err != nil {
		return err
	}
	img.ID = id
	update := bson.M{"$push": bson.M{"images": newImageDocument(img)}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": int64(img.ListingID)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainlisting.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) SetPromotion(ctx context.Context, id domainlisting.ID, until time.Time) error {
	update := bson.M{"$set": bson.M{"promoted_until": until.UnixMilli()}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": int64(id)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainlisting.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) CountByOwner(ctx context.Context, owner domainuser.ID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"owner_id": int64(owner)})
}

func (r *ListingRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *ListingRepository) find(ctx context.Context, query bson.M) ([]*domainlisting.Listing, error) {
	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainlisting.Listing
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toListing())
	}
	return out, cur.Err()
}

type listingDocument struct {
	ID            int64           `bson:"_id"`
	OwnerID       int64           `bson:"owner_id"`
	Title         string          `bson:"title"`
	Description   string          `bson:"description"`
	Price         float64         `bson:"price"`
	PriceType     string          `bson:"price_type"`
	City          string          `bson:"city"`
	Address       string          `bson:"address"`
	Lat           float64         `bson:"lat"`
	Lng           float64         `bson:"lng"`
	Rooms         int             `bson:"rooms"`
	Area          int             `bson:"area"`
	Amenities     string          `bson:"amenities"`
	PropertyType  string          `bson:"property_type"`
	ContactPhone  string          `bson:"contact_phone"`
	ContactEmail  string          `bson:"contact_email"`
	IsUrgent      bool            `bson:"is_urgent"`
	Visibility    string          `bson:"visibility"`
	PromotedUntil int64           `bson:"promoted_until,omitempty"`
	CreatedAt     int64           `bson:"created_at"`
	Images        []imageDocument `bson:"images"`
}

type imageDocument struct {
	ID    int64  `bson:"id"`
	URL   string `bson:"url"`
	Order int    `bson:"order"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	images := make([]imageDocument, 0, len(l.Images))
	for i := range l.Images {
		images = append(images, newImageDocument(&l.Images[i]))
	}
	var promoted int64
	if !l.PromotedUntil.IsZero() {
		promoted = l.PromotedUntil.UnixMilli()
	}
	return listingDocument{
		ID:            int64(l.ID),
		OwnerID:       int64(l.OwnerID),
		Title:         l.Title,
		Description:   l.Description,
		Price:         l.Price,
		PriceType:     l.PriceType,
		City:          l.City,
		Address:       l.Address,
		Lat:           l.Lat,
		Lng:           l.Lng,
		Rooms:         l.Rooms,
		Area:          l.Area,
		Amenities:     l.Amenities,
		PropertyType:  l.PropertyType,
		ContactPhone:  l.ContactPhone,
		ContactEmail:  l.ContactEmail,
		IsUrgent:      l.IsUrgent,
		Visibility:    l.Visibility,
		PromotedUntil: promoted,
		CreatedAt:     l.CreatedAt.UnixMilli(),
		Images:        images,
	}
}

func newImageDocument(img *domainlisting.Image) imageDocument {
	return imageDocument{ID: img.ID, URL: img.URL, Order: img.Order}
}

func (d listingDocument) toListing() *domainlisting.Listing {
	images := make([]domainlisting.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domainlisting.Image{
			ID:        img.ID,
			ListingID: domainlisting.ID(d.ID),
			URL:       img.URL,
			Order:     img.Order,
		})
	}
	var promoted time.Time
	if d.PromotedUntil != 0 {
		promoted = millisToTime(d.PromotedUntil)
	}
	return &domainlisting.Listing{
		ID:            domainlisting.ID(d.ID),
		OwnerID:       domainuser.ID(d.OwnerID),
		Title:         d.Title,
		Description:   d.Description,
		Price:         d.Price,
		PriceType:     d.PriceType,
		City:          d.City,
		Address:       d.Address,
		Lat:           d.Lat,
		Lng:           d.Lng,
		Rooms:         d.Rooms,
		Area:          d.Area,
		Amenities:     d.Amenities,
		PropertyType:  d.PropertyType,
		ContactPhone:  d.ContactPhone,
		ContactEmail:  d.ContactEmail,
		IsUrgent:      d.IsUrgent,
		Visibility:    d.Visibility,
		PromotedUntil: promoted,
		CreatedAt:     millisToTime(d.CreatedAt),
		Images:        images,
	}
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
