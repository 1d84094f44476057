package listings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainlisting "rentline/internal/domain/listing"
	domainplan "rentline/internal/domain/plan"
	domainuser "rentline/internal/domain/user"
)

var ErrPlanLimitReached = errors.New("listings: plan listing limit reached")

// Service creates and queries listings, enforcing the owner's plan limit on
// creation.
type Service struct {
	Listings domainlisting.Repository
	Plans    domainplan.Repository
	Logger   *slog.Logger
}

func (s *Service) Create(ctx context.Context, owner domainuser.ID, params domainlisting.CreateParams) (*domainlisting.Listing, error) {
	params.OwnerID = owner
	l, err := domainlisting.NewListing(params)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlanLimit(ctx, owner); err != nil {
		return nil, err
	}
	if err := s.Listings.Create(ctx, l); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("listing created", "listing_id", l.ID, "owner_id", owner, "city", l.City)
	}
	return l, nil
}

func (s *Service) Catalog(ctx context.Context, filter domainlisting.Filter) ([]*domainlisting.Listing, error) {
	return s.Listings.Catalog(ctx, filter)
}

func (s *Service) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	return s.Listings.ByID(ctx, id)
}

func (s *Service) ByOwner(ctx context.Context, owner domainuser.ID) ([]*domainlisting.Listing, error) {
	return s.Listings.ByOwner(ctx, owner)
}

const promotionPeriod = 7 * 24 * time.Hour

// Promote puts a week-long promotion on a listing the caller owns. Only the
// owner may promote, and a second promotion cannot be stacked on an active
// one.
func (s *Service) Promote(ctx context.Context, caller domainuser.ID, id domainlisting.ID) (time.Time, error) {
	l, err := s.Listings.ByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if l.OwnerID != caller {
		return time.Time{}, domainlisting.ErrNotFound
	}
	now := time.Now()
	if l.Promoted(now) {
		return time.Time{}, domainlisting.ErrAlreadyPromoted
	}
	until := now.Add(promotionPeriod).UTC()
	if err := s.Listings.SetPromotion(ctx, id, until); err != nil {
		return time.Time{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("listing promoted", "listing_id", id, "owner_id", caller, "until", until)
	}
	return until, nil
}

// AttachImage records an uploaded photo URL against a listing the caller owns.
func (s *Service) AttachImage(ctx context.Context, caller domainuser.ID, id domainlisting.ID, url string, order int) (*domainlisting.Image, error) {
	l, err := s.Listings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != caller {
		return nil, domainlisting.ErrNotFound
	}
	img := &domainlisting.Image{ListingID: id, URL: url, Order: order}
	if err := s.Listings.AttachImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *Service) checkPlanLimit(ctx context.Context, owner domainuser.ID) error {
	if s.Plans == nil {
		return nil
	}
	current, err := s.Plans.ByUser(ctx, owner)
	if err != nil {
		if errors.Is(err, domainplan.ErrNotFound) {
			current = domainplan.DefaultFree(owner, time.Now())
			if err := s.Plans.Save(ctx, current); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	active, err := s.Listings.CountByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if !current.CanCreateMore(active) {
		return ErrPlanLimitReached
	}
	return nil
}
