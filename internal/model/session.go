package model

import (
	"strings"
	"time"
)

// DevUserPrefix marks identities synthesized by the development OTP stub
const DevUserPrefix = "dev-user-"

// User is the identity returned by the auth provider
type User struct {
	ID           string     `json:"id"`
	Phone        string     `json:"phone"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

// Session is an authenticated identity plus its tokens
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         User      `json:"user"`
}

// IsDevelopment reports whether the session was created by the development stub.
func (s *Session) IsDevelopment() bool {
	return s != nil && strings.HasPrefix(s.User.ID, DevUserPrefix)
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
