package auth

import (
	"regexp"
	"strings"

	"github.com/sakif/movie-watchlist/internal/apperror"
)

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credentials is what the sign-in and sign-up forms submit.
type Credentials struct {
	Email    string
	Password string
}

// Normalize trims surrounding whitespace from the email. Passwords are left
// as typed.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// ValidateSignIn only checks presence. Everything else is the provider's call.
func ValidateSignIn(c Credentials) error {
	if c.Email == "" || c.Password == "" {
		return apperror.ValidationFailed("email", "Email and password are required")
	}
	return nil
}

// ValidateSignUp runs the local checks in order: presence, password length,
// email shape. The first failure wins.
func ValidateSignUp(c Credentials) error {
	if err := ValidateSignIn(c); err != nil {
		return err
	}
	if len(c.Password) < MinPasswordLength {
		return apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}
	if !emailPattern.MatchString(c.Email) {
		return apperror.ValidationFailed("email", "Invalid email format")
	}
	return nil
}
