package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	domainuser "rentline/internal/domain/user"
)

var (
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrPasswordTooShort    = errors.New("auth: password must be at least 6 characters")
	ErrRefreshTokenInvalid = errors.New("auth: refresh token invalid or expired")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessTokens signs and verifies the short-lived bearer tokens handed to clients.
type AccessTokens interface {
	Sign(userID domainuser.ID, now time.Time) (string, error)
	Verify(raw string) (domainuser.ID, error)
}

// RefreshTokens mints the opaque tokens carried in the HttpOnly cookie.
type RefreshTokens interface {
	NewToken() (string, error)
}

// RefreshTokenStore keeps issued refresh tokens server-side so they can be
// rotated on every refresh and revoked on logout.
type RefreshTokenStore interface {
	Save(ctx context.Context, token string, userID domainuser.ID, expiresAt time.Time) error
	Lookup(ctx context.Context, token string) (domainuser.ID, error)
	Delete(ctx context.Context, token string) error
}

type Service struct {
	Users           domainuser.Repository
	Passwords       PasswordHasher
	Access          AccessTokens
	Refresh         RefreshTokens
	RefreshStore    RefreshTokenStore
	RefreshTokenTTL time.Duration
	Logger          *slog.Logger
}

type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type LoginParams struct {
	Email    string
	Password string
}

// AuthResult carries the authenticated user plus both credentials: the bearer
// access token for the response body and the refresh token for the cookie.
type AuthResult struct {
	User         *domainuser.User
	AccessToken  string
	RefreshToken string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(strings.TrimSpace(params.FirstName) + " " + strings.TrimSpace(params.LastName))
	user, err := domainuser.NewUser(domainuser.CreateParams{
		Email:        params.Email,
		Name:         name,
		Phone:        params.Phone,
		PasswordHash: hash,
		Role:         domainuser.RoleTenant,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	}
	return result, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return result, nil
}

// RefreshAccess exchanges a still-valid refresh token for a fresh access token,
// rotating the refresh token in the process. The spent token is deleted before
// the replacement is saved so a replayed token cannot succeed twice.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}
	userID, err := s.RefreshStore.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	if err := s.RefreshStore.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("access token refreshed", "user_id", user.ID)
	}
	return result, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	if err := s.RefreshStore.Delete(ctx, refreshToken); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("session terminated")
	}
	return nil
}

// ResolveAccess verifies a bearer token and loads the user behind it.
func (s *Service) ResolveAccess(ctx context.Context, accessToken string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	userID, err := s.Access.Verify(strings.TrimSpace(accessToken))
	if err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, userID)
}

func (s *Service) UpdateRole(ctx context.Context, userID domainuser.ID, role domainuser.Role) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := s.Users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, user *domainuser.User) (*AuthResult, error) {
	now := time.Now()
	access, err := s.Access.Sign(user.ID, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Refresh.NewToken()
	if err != nil {
		return nil, err
	}
	if err := s.RefreshStore.Save(ctx, refresh, user.ID, now.Add(s.refreshTTL())); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) refreshTTL() time.Duration {
	if s.RefreshTokenTTL > 0 {
		return s.RefreshTokenTTL
	}
	return 720 * time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Access == nil:
		return errors.New("auth: access token signer required")
	case s.Refresh == nil:
		return errors.New("auth: refresh token generator required")
	case s.RefreshStore == nil:
		return errors.New("auth: refresh token store required")
	default:
		return nil
	}
}
