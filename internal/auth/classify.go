package auth

import (
	"fmt"
	"strings"

	"github.com/sakif/movie-watchlist/internal/apperror"
)

// Op names the provider operation being classified. It prefixes the generic
// failure text ("Login failed: ...").
type Op string

const (
	OpSignIn  Op = "Login"
	OpSignUp  Op = "Registration"
	OpResend  Op = "Resend"
	OpSignOut Op = "Logout"
)

// Provider message fragments we recognise. Matching is by substring because
// the provider does not promise stable error codes across versions.
const (
	fragmentNotConfirmed      = "Email not confirmed"
	fragmentBadCredentials    = "Invalid login credentials"
	fragmentAlreadyRegistered = "User already registered"
)

// Classify turns a provider refusal into an AppError carrying a bucket and
// the text the page should show.
func Classify(op Op, providerMessage string) *apperror.AppError {
	switch {
	case strings.Contains(providerMessage, fragmentNotConfirmed):
		return apperror.Provider(apperror.BucketNotConfirmed,
			"Email not confirmed yet. Please check your inbox.")
	case strings.Contains(providerMessage, fragmentBadCredentials):
		return apperror.Provider(apperror.BucketBadCredentials,
			"Incorrect email or password")
	case op == OpSignUp && strings.Contains(providerMessage, fragmentAlreadyRegistered):
		return apperror.Provider(apperror.BucketAlreadyRegistered,
			"Email is already registered. Please log in or use another email.")
	}

	if op == OpResend {
		return apperror.Provider(apperror.BucketGeneric,
			fmt.Sprintf("Failed to resend email: %s", providerMessage))
	}
	return apperror.Provider(apperror.BucketGeneric,
		fmt.Sprintf("%s failed: %s", op, providerMessage))
}
