package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/movie-watchlist/internal/apperror"
)

func TestValidateSignIn(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "both present", creds: Credentials{Email: "a@b.co", Password: "x"}},
		{name: "short password is fine for sign in", creds: Credentials{Email: "not-an-email", Password: "1"}},
		{name: "missing email", creds: Credentials{Password: "secret"}, wantErr: true},
		{name: "missing password", creds: Credentials{Email: "a@b.co"}, wantErr: true},
		{name: "both missing", creds: Credentials{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignIn(tt.creds)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, "Email and password are required", err.Error())
		})
	}
}

func TestValidateSignUp(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantMsg string
	}{
		{name: "valid", creds: Credentials{Email: "new@user.com", Password: "secret1"}},
		{name: "exactly six", creds: Credentials{Email: "new@user.com", Password: "123456"}},
		{name: "empty", creds: Credentials{}, wantMsg: "Email and password are required"},
		{name: "short password", creds: Credentials{Email: "new@user.com", Password: "12345"}, wantMsg: "Password must be at least 6 characters"},
		{name: "no at sign", creds: Credentials{Email: "newuser.com", Password: "secret1"}, wantMsg: "Invalid email format"},
		{name: "no dot in domain", creds: Credentials{Email: "new@user", Password: "secret1"}, wantMsg: "Invalid email format"},
		{name: "space inside", creds: Credentials{Email: "new @user.com", Password: "secret1"}, wantMsg: "Invalid email format"},
		// Length is checked before shape, so a bad email with a short password reports the password.
		{name: "short password wins over bad email", creds: Credentials{Email: "bad", Password: "1"}, wantMsg: "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignUp(tt.creds)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestCredentialsNormalize(t *testing.T) {
	c := Credentials{Email: "  a@b.co \n", Password: " keep "}.Normalize()

	assert.Equal(t, "a@b.co", c.Email)
	assert.Equal(t, " keep ", c.Password)
}
