package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/service"
)

// SessionManager is the slice of the session service the auth forms use.
type SessionManager interface {
	SignIn(ctx context.Context, visitorID string, creds auth.Credentials) (*model.Session, error)
	SignUp(ctx context.Context, visitorID string, creds auth.Credentials) (*service.SignUpResult, error)
	ResendConfirmation(ctx context.Context, pendingEmail string) error
	SignOut(ctx context.Context, visitorID string, sess *model.Session) error
	ConfirmFromFragment(ctx context.Context, visitorID string, f service.Fragment) (*model.Session, error)
}

var _ SessionManager = (*service.SessionService)(nil)

// Banner texts for successful auth actions.
const (
	msgLoggedIn   = "Logged in successfully!"
	msgRegistered = "Registration successful! A confirmation email has been sent."
	msgResent     = "Confirmation email sent again!"
	msgLoggedOut  = "Logged out successfully!"
	msgConfirmed  = "Email confirmed! You can now use the app."
)

const maxFormBodySize = 16 << 10

// AuthHandler serves the sign-in, sign-up, resend and sign-out forms and the
// confirmation hand-off.
//
// POST-REDIRECT-GET:
// Every form post answers 303 → GET /. The outcome travels in a one-shot
// flash cookie, so reloading the page never re-submits a password.
//
//	POST /auth/login    → session cookie, or banner (+ pending cookie if unconfirmed)
//	POST /auth/register → pending cookie (or session cookie if auto-confirmed)
//	POST /auth/resend   → banner
//	POST /auth/logout   → session cookie cleared
//	POST /auth/confirm  → JSON, session cookie
//	GET  /auth/session  → JSON
type AuthHandler struct {
	sessions SessionManager
	cookies  *auth.Cookies
	logger   *slog.Logger
}

func NewAuthHandler(sessions SessionManager, cookies *auth.Cookies, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, logger: logger}
}

func credentialsFrom(w http.ResponseWriter, r *http.Request) auth.Credentials {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	_ = r.ParseForm()
	return auth.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}.Normalize()
}

// HandleLogin signs the visitor in.
//
// An unconfirmed account gets the pending cookie, which makes the page show
// the resend control. No session is created.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	creds := credentialsFrom(w, r)

	sess, err := h.sessions.SignIn(r.Context(), st.VisitorID, creds)
	if err != nil {
		if apperror.BucketOf(err) == apperror.BucketNotConfirmed {
			h.setPending(w, r, creds.Email)
		}
		h.logFailure(r, auth.OpSignIn, err)
		redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashError, Text: bannerText(auth.OpSignIn, err)})
		return
	}

	if !h.startSession(w, r, sess) {
		return
	}
	h.cookies.ClearPending(w)
	redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashSuccess, Text: msgLoggedIn})
}

// HandleRegister creates an account. Without auto-confirm there is no
// session yet; the pending cookie remembers the address for a resend.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	creds := credentialsFrom(w, r)

	res, err := h.sessions.SignUp(r.Context(), st.VisitorID, creds)
	if err != nil {
		h.logFailure(r, auth.OpSignUp, err)
		redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashError, Text: bannerText(auth.OpSignUp, err)})
		return
	}

	if res.Session != nil {
		if !h.startSession(w, r, res.Session) {
			return
		}
		h.cookies.ClearPending(w)
		redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashSuccess, Text: msgLoggedIn})
		return
	}

	h.setPending(w, r, res.Email)
	redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashSuccess, Text: msgRegistered})
}

// HandleResend mails the confirmation link again. With nothing pending it
// is a plain redirect.
func (h *AuthHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	if st.PendingEmail == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.sessions.ResendConfirmation(r.Context(), st.PendingEmail); err != nil {
		h.logFailure(r, auth.OpResend, err)
		redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashError, Text: bannerText(auth.OpResend, err)})
		return
	}
	redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashSuccess, Text: msgResent})
}

// HandleLogout ends the session. The cookie is cleared even when the
// provider call fails; the banner says so.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	err := h.sessions.SignOut(r.Context(), st.VisitorID, st.Session)
	h.cookies.ClearSession(w)
	h.cookies.ClearPending(w)

	if err != nil {
		h.logFailure(r, auth.OpSignOut, err)
		redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashError, Text: bannerText(auth.OpSignOut, err)})
		return
	}
	redirectHome(w, r, h.cookies, auth.Flash{Kind: auth.FlashSuccess, Text: msgLoggedOut})
}

// ConfirmRequest is what app.js posts after reading the URL fragment of a
// confirmation link.
type ConfirmRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Type         string `json:"type"`
}

// SessionResponse describes the visitor's auth state to app.js.
type SessionResponse struct {
	SignedIn     bool   `json:"signedIn"`
	Email        string `json:"email,omitempty"`
	PendingEmail string `json:"pendingEmail,omitempty"`
}

// HandleConfirm turns confirmation-link tokens into a session.
//
// HTTP: POST /auth/confirm
// REQUEST BODY: {"access_token": "...", "refresh_token": "...", "type": "signup"}
//
// On success app.js strips the fragment and reloads; the banner is waiting.
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	var req ConfirmRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBodySize)).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "invalid confirm JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Email confirmation failed. Please try logging in.",
		})
		return
	}

	sess, err := h.sessions.ConfirmFromFragment(r.Context(), st.VisitorID, service.Fragment{
		AccessToken:  strings.TrimSpace(req.AccessToken),
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		Type:         req.Type,
	})
	if err != nil {
		h.logFailure(r, "Confirm", err)
		writeError(w, err)
		return
	}

	if err := h.cookies.SetSession(w, sess.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "signing session cookie", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.cookies.ClearPending(w)
	h.cookies.SetFlash(w, auth.Flash{Kind: auth.FlashSuccess, Text: msgConfirmed})

	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, Email: sess.User.Email})
}

// HandleSession reports the visitor's auth state.
//
// HTTP: GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	resp := SessionResponse{SignedIn: st.SignedIn(), PendingEmail: st.PendingEmail}
	if st.SignedIn() {
		resp.Email = st.Session.User.Email
		resp.PendingEmail = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

// startSession writes the session cookie. On failure it has already
// answered the request.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, sess *model.Session) bool {
	if err := h.cookies.SetSession(w, sess.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "signing session cookie", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *AuthHandler) setPending(w http.ResponseWriter, r *http.Request, email string) {
	if email == "" {
		return
	}
	if err := h.cookies.SetPending(w, email); err != nil {
		h.logger.ErrorContext(r.Context(), "signing pending cookie", slog.String("error", err.Error()))
	}
}

func (h *AuthHandler) logFailure(r *http.Request, op auth.Op, err error) {
	h.logger.InfoContext(r.Context(), "auth action failed",
		slog.String("op", string(op)),
		slog.String("bucket", string(apperror.BucketOf(err))),
		slog.String("error", err.Error()),
	)
}
