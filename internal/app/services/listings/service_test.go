package listings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
	"rentline/internal/infra/storage/memory"
)

func newService() *Service {
	return &Service{
		Listings: memory.NewListingRepository(),
		Plans:    memory.NewPlanRepository(),
	}
}

func validParams(i int) domainlisting.CreateParams {
	return domainlisting.CreateParams{
		Title:   fmt.Sprintf("Flat %d", i),
		Address: fmt.Sprintf("%d Main St", i),
		Price:   500,
		City:    "Lviv",
	}
}

func TestService_CreateAndFetch(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()
	owner := domainuser.ID(1)

	created, err := svc.Create(ctx, owner, validParams(1))
	req.NoError(err)
	req.NotZero(created.ID)
	req.Equal(owner, created.OwnerID)

	fetched, err := svc.ByID(ctx, created.ID)
	req.NoError(err)
	req.Equal(created.Title, fetched.Title)

	mine, err := svc.ByOwner(ctx, owner)
	req.NoError(err)
	req.Len(mine, 1)
}

func TestService_CreateValidation(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()

	params := validParams(1)
	params.Title = "  "
	_, err := svc.Create(ctx, 1, params)
	req.ErrorIs(err, domainlisting.ErrTitleRequired)

	params = validParams(1)
	params.Price = 0
	_, err = svc.Create(ctx, 1, params)
	req.ErrorIs(err, domainlisting.ErrInvalidPrice)
}

func TestService_FreePlanLimit(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()
	owner := domainuser.ID(1)

	// Free plan allows three active listings.
	for i := 1; i <= 3; i++ {
		_, err := svc.Create(ctx, owner, validParams(i))
		req.NoError(err)
	}
	_, err := svc.Create(ctx, owner, validParams(4))
	req.ErrorIs(err, ErrPlanLimitReached)

	// Another owner is unaffected.
	_, err = svc.Create(ctx, domainuser.ID(2), validParams(5))
	req.NoError(err)
}

func TestService_CatalogFiltersByCity(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()

	lviv := validParams(1)
	_, err := svc.Create(ctx, 1, lviv)
	req.NoError(err)

	kyiv := validParams(2)
	kyiv.City = "Kyiv"
	_, err = svc.Create(ctx, 2, kyiv)
	req.NoError(err)

	all, err := svc.Catalog(ctx, domainlisting.Filter{})
	req.NoError(err)
	req.Len(all, 2)

	onlyKyiv, err := svc.Catalog(ctx, domainlisting.Filter{City: "Kyiv"})
	req.NoError(err)
	req.Len(onlyKyiv, 1)
	req.Equal("Kyiv", onlyKyiv[0].City)
}

func TestService_AttachImageOwnershipCheck(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, validParams(1))
	req.NoError(err)

	img, err := svc.AttachImage(ctx, 1, created.ID, "https://cdn.example.com/1.jpg", 0)
	req.NoError(err)
	req.NotZero(img.ID)

	_, err = svc.AttachImage(ctx, 2, created.ID, "https://cdn.example.com/2.jpg", 1)
	req.ErrorIs(err, domainlisting.ErrNotFound)

	fetched, err := svc.ByID(ctx, created.ID)
	req.NoError(err)
	req.Len(fetched.Images, 1)
}

func TestService_Promote(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, validParams(1))
	req.NoError(err)

	until, err := svc.Promote(ctx, 1, created.ID)
	req.NoError(err)
	req.WithinDuration(time.Now().Add(7*24*time.Hour), until, time.Minute)

	promoted, err := svc.ByID(ctx, created.ID)
	req.NoError(err)
	req.True(promoted.Promoted(time.Now()))
	req.Equal(until, promoted.PromotedUntil)

	// An active promotion cannot be stacked.
	_, err = svc.Promote(ctx, 1, created.ID)
	req.ErrorIs(err, domainlisting.ErrAlreadyPromoted)
}

func TestService_PromoteOwnershipCheck(t *testing.T) {
	req := require.New(t)
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, validParams(1))
	req.NoError(err)

	_, err = svc.Promote(ctx, 2, created.ID)
	req.ErrorIs(err, domainlisting.ErrNotFound)

	_, err = svc.Promote(ctx, 1, created.ID+100)
	req.ErrorIs(err, domainlisting.ErrNotFound)

	fetched, err := svc.ByID(ctx, created.ID)
	req.NoError(err)
	req.False(fetched.Promoted(time.Now()))
}
