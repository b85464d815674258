package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
)

func loginForm(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/auth/login", loginForm(" me@example.com ", "secret1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.NotNil(t, cookieNamed(rec, auth.SessionCookie))
	assert.Equal(t, "me@example.com", h.sessions.creds[0].Email, "email trimmed")

	flash := h.flashOf(rec)
	require.NotNil(t, flash)
	assert.Equal(t, auth.FlashSuccess, flash.Kind)
	assert.Equal(t, "Logged in successfully!", flash.Text)

	page := h.do(httptest.NewRequest(http.MethodGet, "/", nil), live(rec)...)
	assert.Contains(t, page.Body.String(), `data-auth-state="in"`)
	assert.Contains(t, page.Body.String(), "me@example.com")
}

func TestLogin_UnconfirmedShowsResend(t *testing.T) {
	h := newHarness(t)
	h.sessions.signInErr = apperror.Provider(apperror.BucketNotConfirmed,
		"Email not confirmed yet. Please check your inbox.")

	rec := h.postForm("/auth/login", loginForm("new@example.com", "secret1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.SessionCookie), "no session created")
	require.NotNil(t, cookieNamed(rec, auth.PendingCookie))

	page := h.do(httptest.NewRequest(http.MethodGet, "/", nil), live(rec)...)
	body := page.Body.String()
	assert.Contains(t, body, "Email not confirmed yet. Please check your inbox.")
	assert.Contains(t, body, `id="resendBtn"`)
	assert.Contains(t, body, "new@example.com")
	assert.Contains(t, body, `data-auth-state="out"`)

	// The banner is shown once.
	flash := cookieNamed(page, auth.FlashCookie)
	require.NotNil(t, flash)
	assert.Negative(t, flash.MaxAge)
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.sessions.signInErr = apperror.Provider(apperror.BucketBadCredentials, "Incorrect email or password")

	rec := h.postForm("/auth/login", loginForm("me@example.com", "wrong"))

	assert.Nil(t, cookieNamed(rec, auth.PendingCookie), "resend only for unconfirmed accounts")
	flash := h.flashOf(rec)
	require.NotNil(t, flash)
	assert.Equal(t, auth.FlashError, flash.Kind)
	assert.Equal(t, "Incorrect email or password", flash.Text)
}

func TestLogin_UnexpectedFailure(t *testing.T) {
	h := newHarness(t)
	h.sessions.signInErr = assert.AnError

	rec := h.postForm("/auth/login", loginForm("me@example.com", "secret1"))

	flash := h.flashOf(rec)
	require.NotNil(t, flash)
	assert.True(t, strings.HasPrefix(flash.Text, "Login failed: "), flash.Text)
	assert.NotContains(t, flash.Text, assert.AnError.Error())
}

func TestRegister_PendingConfirmation(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/auth/register", loginForm("new@example.com", "secret1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.SessionCookie))
	require.NotNil(t, cookieNamed(rec, auth.PendingCookie))
	assert.Equal(t, "Registration successful! A confirmation email has been sent.", h.flashOf(rec).Text)

	page := h.do(httptest.NewRequest(http.MethodGet, "/", nil), live(rec)...)
	assert.Contains(t, page.Body.String(), `id="resendBtn"`)
}

func TestRegister_AutoConfirmed(t *testing.T) {
	h := newHarness(t)
	h.sessions.signUpSess = true

	rec := h.postForm("/auth/register", loginForm("new@example.com", "secret1"))

	require.NotNil(t, cookieNamed(rec, auth.SessionCookie))
	assert.Equal(t, "Logged in successfully!", h.flashOf(rec).Text)
}

func TestRegister_Failure(t *testing.T) {
	h := newHarness(t)
	h.sessions.signUpErr = apperror.Provider(apperror.BucketAlreadyRegistered,
		"Email is already registered. Please log in or use another email.")

	rec := h.postForm("/auth/register", loginForm("me@example.com", "secret1"))

	assert.Nil(t, cookieNamed(rec, auth.PendingCookie))
	assert.Equal(t, "Email is already registered. Please log in or use another email.", h.flashOf(rec).Text)
}

func TestResend(t *testing.T) {
	h := newHarness(t)

	pending := httptest.NewRecorder()
	require.NoError(t, h.cookies.SetPending(pending, "new@example.com"))

	rec := h.postForm("/auth/resend", nil, cookieNamed(pending, auth.PendingCookie))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"new@example.com"}, h.sessions.resent)
	assert.Equal(t, "Confirmation email sent again!", h.flashOf(rec).Text)
}

func TestResend_NothingPending(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/auth/resend", nil)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, h.sessions.resent)
	assert.Nil(t, h.flashOf(rec))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	session := h.signedIn(t, "me@example.com")

	rec := h.postForm("/auth/logout", nil, session)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, h.sessions.signedOut, 1)
	require.NotNil(t, h.sessions.signedOut[0])
	assert.Equal(t, "me@example.com", h.sessions.signedOut[0].User.Email)

	cleared := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.Equal(t, "Logged out successfully!", h.flashOf(rec).Text)
}

func TestLogout_ProviderFailureStillClearsCookie(t *testing.T) {
	h := newHarness(t)
	h.sessions.signOutErr = apperror.Provider(apperror.BucketGeneric, "Logout failed: network down")
	session := h.signedIn(t, "me@example.com")

	rec := h.postForm("/auth/logout", nil, session)

	cleared := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	flash := h.flashOf(rec)
	assert.Equal(t, auth.FlashError, flash.Kind)
	assert.Equal(t, "Logout failed: network down", flash.Text)
}

func TestConfirm_EstablishesSession(t *testing.T) {
	h := newHarness(t)

	body := `{"access_token":"at","refresh_token":"rt","type":"signup"}`
	rec := h.do(httptest.NewRequest(http.MethodPost, "/auth/confirm", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.SignedIn)
	assert.Equal(t, "confirmed@example.com", resp.Email)

	require.Len(t, h.sessions.fragments, 1)
	assert.Equal(t, "signup", h.sessions.fragments[0].Type)
	assert.Equal(t, "rt", h.sessions.fragments[0].RefreshToken)

	// The reload after the hand-off shows the main content, no login needed.
	page := h.do(httptest.NewRequest(http.MethodGet, "/", nil), live(rec)...)
	out := page.Body.String()
	assert.Contains(t, out, `id="mainContent"`)
	assert.NotContains(t, out, `id="loginForm"`)
	assert.Contains(t, out, "Email confirmed! You can now use the app.")
}

func TestConfirm_Rejected(t *testing.T) {
	h := newHarness(t)
	h.sessions.confirmErr = apperror.ValidationFailed("type", "Email confirmation failed. Please try logging in.")

	body := `{"access_token":"at","type":"recovery"}`
	rec := h.do(httptest.NewRequest(http.MethodPost, "/auth/confirm", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.SessionCookie))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Email confirmation failed. Please try logging in.", resp.Message)
}

func TestConfirm_BadJSON(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/auth/confirm", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.sessions.fragments)
}

func TestSessionEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	assert.JSONEq(t, `{"signedIn":false}`, rec.Body.String())

	session := h.signedIn(t, "me@example.com")
	rec = h.do(httptest.NewRequest(http.MethodGet, "/auth/session", nil), session)
	assert.JSONEq(t, `{"signedIn":true,"email":"me@example.com"}`, rec.Body.String())
}

func TestUnknownSessionCookieIsCleared(t *testing.T) {
	h := newHarness(t)
	session := h.signedIn(t, "me@example.com")
	h.sessions.sessions = map[string]*model.Session{}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil), session)

	assert.Contains(t, rec.Body.String(), `data-auth-state="out"`)
	cleared := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}
