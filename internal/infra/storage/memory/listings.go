package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

// ListingRepository stores listings in memory.
type ListingRepository struct {
	mu         sync.RWMutex
	nextID     domainlisting.ID
	nextImgID  int64
	byID       map[domainlisting.ID]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		nextID:    1,
		nextImgID: 1,
		byID:      make(map[domainlisting.ID]*domainlisting.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byID[id]; ok {
		return cloneListing(l), nil
	}
	return nil, domainlisting.ErrNotFound
}

func (r *ListingRepository) ByOwner(ctx context.Context, owner domainuser.ID) ([]*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domainlisting.Listing
	for _, l := range r.byID {
		if l.OwnerID == owner {
			result = append(result, cloneListing(l))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *ListingRepository) Catalog(ctx context.Context, filter domainlisting.Filter) ([]*domainlisting.Listing, error) {
	city := strings.ToLower(strings.TrimSpace(filter.City))
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domainlisting.Listing
	for _, l := range r.byID {
		if !l.Public() {
			continue
		}
		if city != "" && strings.ToLower(l.City) != city {
			continue
		}
		result = append(result, cloneListing(l))
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *ListingRepository) Create(ctx context.Context, l *domainlisting.Listing) error {
	if l == nil {
		return domainlisting.ErrTitleRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.nextID
	r.nextID++
	r.byID[l.ID] = cloneListing(l)
	return nil
}

func (r *ListingRepository) AttachImage(ctx context.Context, img *domainlisting.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[img.ListingID]
	if !ok {
		return domainlisting.ErrNotFound
	}
	img.ID = r.nextImgID
	r.nextImgID++
	l.Images = append(l.Images, *img)
	return nil
}

func (r *ListingRepository) SetPromotion(ctx context.Context, id domainlisting.ID, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return domainlisting.ErrNotFound
	}
	l.PromotedUntil = until
	return nil
}

func (r *ListingRepository) CountByOwner(ctx context.Context, owner domainuser.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, l := range r.byID {
		if l.OwnerID == owner {
			n++
		}
	}
	return n, nil
}

func (r *ListingRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func sortNewestFirst(listings []*domainlisting.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].ID > listings[j].ID
		}
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}

func cloneListing(l *domainlisting.Listing) *domainlisting.Listing {
	if l == nil {
		return nil
	}
	copyListing := *l
	copyListing.Images = append([]domainlisting.Image(nil), l.Images...)
	return &copyListing
}
