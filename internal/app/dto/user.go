package dto

import (
	"time"

	domainuser "rentline/internal/domain/user"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUser(u *domainuser.User) User {
	if u == nil {
		return User{}
	}
	return User{
		ID:        int64(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse is the register/login body: the profile plus the bearer token.
// The refresh token travels separately in an HttpOnly cookie.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type Stats struct {
	Properties   int64  `json:"properties"`
	Users        int64  `json:"users"`
	Satisfaction int    `json:"satisfaction"`
	Support      string `json:"support"`
}
