package plans

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainlisting "rentline/internal/domain/listing"
	domainplan "rentline/internal/domain/plan"
	domainuser "rentline/internal/domain/user"
)

// Service reads and upgrades subscription plans.
type Service struct {
	Plans    domainplan.Repository
	Listings domainlisting.Repository
	Logger   *slog.Logger
}

// Status is the plan plus derived usage the UI shows.
type Status struct {
	Plan           *domainplan.Plan
	ActiveListings int64
	CanCreateMore  bool
}

// Current returns the user's plan, creating the default free plan on first read.
func (s *Service) Current(ctx context.Context, userID domainuser.ID) (*Status, error) {
	current, err := s.Plans.ByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domainplan.ErrNotFound) {
			return nil, err
		}
		current = domainplan.DefaultFree(userID, time.Now())
		if err := s.Plans.Save(ctx, current); err != nil {
			return nil, err
		}
	}
	active, err := s.Listings.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Status{
		Plan:           current,
		ActiveListings: active,
		CanCreateMore:  current.CanCreateMore(active),
	}, nil
}

func (s *Service) Upgrade(ctx context.Context, userID domainuser.ID, target domainplan.Type) (*domainplan.Plan, error) {
	current, err := s.Plans.ByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domainplan.ErrNotFound) {
			return nil, err
		}
		current = domainplan.DefaultFree(userID, time.Now())
	}
	if err := current.Upgrade(target, time.Now()); err != nil {
		return nil, err
	}
	if err := s.Plans.Save(ctx, current); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("plan upgraded", "user_id", userID, "plan", current.Type)
	}
	return current, nil
}
