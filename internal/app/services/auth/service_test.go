package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentline/internal/app/services/auth"
	domainuser "rentline/internal/domain/user"
	"rentline/internal/infra/security"
	"rentline/internal/infra/storage/memory"
)

func newService() *auth.Service {
	return &auth.Service{
		Users:           memory.NewUserRepository(),
		Passwords:       security.BcryptHasher{Cost: 4},
		Access:          security.AccessTokenSigner{Secret: []byte("test-secret"), TTL: time.Minute},
		Refresh:         security.RandomTokenGenerator{},
		RefreshStore:    memory.NewRefreshTokenStore(),
		RefreshTokenTTL: time.Hour,
	}
}

func register(t *testing.T, svc *auth.Service) *auth.AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), auth.RegisterParams{
		Email:     "Anna@Example.com",
		Password:  "sup3rsecret",
		FirstName: "Anna",
		LastName:  "Koval",
		Phone:     "+380501234567",
	})
	require.NoError(t, err)
	return result
}

func TestService_RegisterIssuesBothTokens(t *testing.T) {
	req := require.New(t)
	svc := newService()

	result := register(t, svc)
	req.Equal("anna@example.com", result.User.Email)
	req.Equal("Anna Koval", result.User.Name)
	req.Equal(domainuser.RoleTenant, result.User.Role)
	req.NotEmpty(result.AccessToken)
	req.NotEmpty(result.RefreshToken)

	resolved, err := svc.ResolveAccess(context.Background(), result.AccessToken)
	req.NoError(err)
	req.Equal(result.User.ID, resolved.ID)
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	req := require.New(t)
	svc := newService()
	register(t, svc)

	_, err := svc.Register(context.Background(), auth.RegisterParams{
		Email:     "anna@example.com",
		Password:  "another1",
		FirstName: "Other",
		LastName:  "Person",
	})
	req.ErrorIs(err, domainuser.ErrEmailAlreadyUsed)
}

func TestService_RegisterShortPassword(t *testing.T) {
	req := require.New(t)
	svc := newService()
	_, err := svc.Register(context.Background(), auth.RegisterParams{
		Email:     "x@y.z",
		Password:  "tiny",
		FirstName: "X",
		LastName:  "Y",
	})
	req.ErrorIs(err, auth.ErrPasswordTooShort)
}

func TestService_Login(t *testing.T) {
	req := require.New(t)
	svc := newService()
	registered := register(t, svc)

	result, err := svc.Login(context.Background(), auth.LoginParams{Email: "ANNA@example.com", Password: "sup3rsecret"})
	req.NoError(err)
	req.Equal(registered.User.ID, result.User.ID)

	_, err = svc.Login(context.Background(), auth.LoginParams{Email: "anna@example.com", Password: "wrong"})
	req.ErrorIs(err, auth.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), auth.LoginParams{Email: "nobody@example.com", Password: "sup3rsecret"})
	req.ErrorIs(err, auth.ErrInvalidCredentials)
}

func TestService_RefreshRotatesToken(t *testing.T) {
	req := require.New(t)
	svc := newService()
	registered := register(t, svc)

	refreshed, err := svc.RefreshAccess(context.Background(), registered.RefreshToken)
	req.NoError(err)
	req.Equal(registered.User.ID, refreshed.User.ID)
	req.NotEmpty(refreshed.AccessToken)
	req.NotEqual(registered.RefreshToken, refreshed.RefreshToken)

	// The spent token is gone; replaying it fails.
	_, err = svc.RefreshAccess(context.Background(), registered.RefreshToken)
	req.ErrorIs(err, auth.ErrRefreshTokenInvalid)

	// The rotated token still works.
	_, err = svc.RefreshAccess(context.Background(), refreshed.RefreshToken)
	req.NoError(err)
}

func TestService_RefreshRejectsUnknownToken(t *testing.T) {
	req := require.New(t)
	svc := newService()
	register(t, svc)

	_, err := svc.RefreshAccess(context.Background(), "never-issued")
	req.ErrorIs(err, auth.ErrRefreshTokenInvalid)

	_, err = svc.RefreshAccess(context.Background(), "   ")
	req.ErrorIs(err, auth.ErrRefreshTokenInvalid)
}

func TestService_LogoutRevokesRefreshToken(t *testing.T) {
	req := require.New(t)
	svc := newService()
	registered := register(t, svc)

	req.NoError(svc.Logout(context.Background(), registered.RefreshToken))

	_, err := svc.RefreshAccess(context.Background(), registered.RefreshToken)
	req.ErrorIs(err, auth.ErrRefreshTokenInvalid)
}

func TestService_UpdateRole(t *testing.T) {
	req := require.New(t)
	svc := newService()
	registered := register(t, svc)

	updated, err := svc.UpdateRole(context.Background(), registered.User.ID, domainuser.RoleLandlord)
	req.NoError(err)
	req.Equal(domainuser.RoleLandlord, updated.Role)
}

func TestService_ResolveAccessRejectsGarbage(t *testing.T) {
	req := require.New(t)
	svc := newService()
	register(t, svc)

	_, err := svc.ResolveAccess(context.Background(), "not-a-jwt")
	req.Error(err)
}
