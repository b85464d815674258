// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"golang.org/x/oauth2"
)

// User is the identity issued by the auth provider.
//
// The provider owns the account. We never store a password or a profile row
// of our own; ID is the provider's UUID and is the value every watchlist row
// is scoped by.
type User struct {
	ID    string `json:"id"    db:"id"`
	Email string `json:"email" db:"email"`
}

// Session is the local mirror of a provider session.
//
// ID is OUR opaque key (an xid) carried in the signed session cookie.
// Token holds the provider's access/refresh pair and expiry. The mirror is
// read-only from the page's point of view: it only changes when the session
// manager applies a sign-in, refresh or sign-out.
type Session struct {
	ID        string        `json:"id"        db:"id"`
	User      User          `json:"user"`
	Token     *oauth2.Token `json:"-"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// AccessToken returns the bearer token, or "" when the session has none.
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}
