// Package service holds the business rules, between the HTTP handlers and
// the external services:
//
//	handler → SessionService   → auth provider, session cache, notifier
//	        → SearchService    → OMDb
//	        → WatchlistService → remote table store
//	        → FeaturedService  → OMDb
//
// Services never see HTTP. They return typed errors from apperror and the
// handler decides what the page shows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/gotrue"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/notify"
	"github.com/sakif/movie-watchlist/internal/repository"
)

// AuthProvider is the subset of the hosted auth provider the session
// manager uses. *gotrue.Client implements it.
type AuthProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*gotrue.Session, error)
	SignUp(ctx context.Context, req gotrue.SignUpRequest) (*gotrue.SignUpResult, error)
	Resend(ctx context.Context, req gotrue.ResendRequest) error
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*gotrue.User, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

var _ AuthProvider = (*gotrue.Client)(nil)

const (
	appName = "Movie Watchlist"

	// The only confirmation type the fragment hand-off accepts, and the
	// resend type for sign-up confirmation mail.
	typeSignup = "signup"

	confirmFailed = "Email confirmation failed. Please try logging in."
)

// SessionService wraps the provider's session lifecycle.
//
// DEPENDENCIES (injected via NewSessionService):
//   - provider    AuthProvider                  → the hosted auth REST API
//   - sessions    repository.SessionRepository  → local cache of provider sessions
//   - notifier    *notify.Notifier              → auth-state change fan-out
//   - claims      *auth.AccessTokenParser       → reads provider access tokens
//   - redirectTo  string                        → where confirmation links land
type SessionService struct {
	provider   AuthProvider
	sessions   repository.SessionRepository
	notifier   *notify.Notifier
	claims     *auth.AccessTokenParser
	redirectTo string
	logger     *slog.Logger
}

func NewSessionService(
	provider AuthProvider,
	sessions repository.SessionRepository,
	notifier *notify.Notifier,
	claims *auth.AccessTokenParser,
	redirectTo string,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		provider:   provider,
		sessions:   sessions,
		notifier:   notifier,
		claims:     claims,
		redirectTo: redirectTo,
		logger:     logger,
	}
}

// SignUpResult reports the outcome of a successful sign-up. Session is nil
// while the email still needs confirming.
type SignUpResult struct {
	Email   string
	Session *model.Session
}

// Fragment is the URL fragment the provider appends to the confirmation
// redirect: #access_token=...&refresh_token=...&type=signup
type Fragment struct {
	AccessToken  string
	RefreshToken string
	Type         string
}

// SignIn exchanges credentials for a provider session.
//
// Only presence is checked locally. A refusal comes back classified: an
// unconfirmed account is apperror.BucketNotConfirmed, and no session is
// created.
func (s *SessionService) SignIn(ctx context.Context, visitorID string, creds auth.Credentials) (*model.Session, error) {
	creds = creds.Normalize()
	if err := auth.ValidateSignIn(creds); err != nil {
		return nil, err
	}

	gs, err := s.provider.SignInWithPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, s.providerError(ctx, auth.OpSignIn, err)
	}

	return s.establish(ctx, visitorID, gs.User, gs.Token())
}

// SignUp validates locally and calls the provider exactly once.
func (s *SessionService) SignUp(ctx context.Context, visitorID string, creds auth.Credentials) (*SignUpResult, error) {
	creds = creds.Normalize()
	if err := auth.ValidateSignUp(creds); err != nil {
		return nil, err
	}

	res, err := s.provider.SignUp(ctx, gotrue.SignUpRequest{
		Email:      creds.Email,
		Password:   creds.Password,
		RedirectTo: s.redirectTo,
		Data:       map[string]any{"app_name": appName},
	})
	if err != nil {
		return nil, s.providerError(ctx, auth.OpSignUp, err)
	}

	out := &SignUpResult{Email: creds.Email}

	// Projects with auto-confirm hand back a session straight away.
	if res.Session != nil {
		sess, err := s.establish(ctx, visitorID, res.Session.User, res.Session.Token())
		if err != nil {
			return nil, err
		}
		out.Session = sess
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.String("user_id", res.User.ID),
		slog.Bool("confirmed", out.Session != nil),
	)
	return out, nil
}

// ResendConfirmation asks the provider to mail the sign-up link again.
func (s *SessionService) ResendConfirmation(ctx context.Context, pendingEmail string) error {
	if pendingEmail == "" {
		return apperror.ValidationFailed("email", "No email is waiting for confirmation")
	}

	err := s.provider.Resend(ctx, gotrue.ResendRequest{
		Type:       typeSignup,
		Email:      pendingEmail,
		RedirectTo: s.redirectTo,
	})
	if err != nil {
		return s.providerError(ctx, auth.OpResend, err)
	}
	return nil
}

// SignOut ends the session with the provider and drops it locally. A
// provider failure is returned, but the local session is gone regardless.
func (s *SessionService) SignOut(ctx context.Context, visitorID string, sess *model.Session) error {
	if sess == nil {
		return nil
	}

	remoteErr := s.provider.SignOut(ctx, sess.AccessToken())

	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		s.logger.ErrorContext(ctx, "dropping cached session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
	s.notifier.Publish(notify.Event{
		Kind:      notify.SignedOut,
		VisitorID: visitorID,
		SessionID: sess.ID,
		Email:     sess.User.Email,
	})

	if remoteErr != nil {
		return s.providerError(ctx, auth.OpSignOut, remoteErr)
	}
	return nil
}

// Restore turns a session id from a cookie back into a live session.
//
// An expired access token is refreshed through the provider and the new
// tokens are cached. If the provider refuses the refresh, the session is
// dropped and apperror.ErrUnauthorized returned. Network failures are
// returned as-is and leave the cache untouched.
func (s *SessionService) Restore(ctx context.Context, visitorID, sessionID string) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	tok, err := s.provider.TokenSource(ctx, sess.Token).Token()
	if err != nil {
		var gtErr *gotrue.Error
		if errors.As(err, &gtErr) {
			s.logger.InfoContext(ctx, "session refresh refused, signing out",
				slog.String("session_id", sessionID),
				slog.String("error", gtErr.Message),
			)
			_ = s.sessions.Delete(ctx, sessionID)
			s.notifier.Publish(notify.Event{
				Kind:      notify.SignedOut,
				VisitorID: visitorID,
				SessionID: sessionID,
				Email:     sess.User.Email,
			})
			return nil, apperror.Unauthorized("Session expired, please log in again")
		}
		return nil, fmt.Errorf("service: refreshing session %s: %w", sessionID, err)
	}

	if tok.AccessToken != sess.Token.AccessToken {
		sess.Token = tok
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("service: caching refreshed session: %w", err)
		}
		s.notifier.Publish(notify.Event{
			Kind:      notify.TokenRefreshed,
			VisitorID: visitorID,
			SessionID: sess.ID,
			Email:     sess.User.Email,
		})
	}

	return sess, nil
}

// ConfirmFromFragment establishes a session from the tokens the provider put
// in the confirmation redirect's URL fragment.
func (s *SessionService) ConfirmFromFragment(ctx context.Context, visitorID string, f Fragment) (*model.Session, error) {
	if f.Type != typeSignup || f.AccessToken == "" {
		return nil, apperror.ValidationFailed("type", confirmFailed)
	}

	id, err := s.claims.Parse(f.AccessToken)
	if err != nil {
		s.logger.WarnContext(ctx, "confirmation token rejected", slog.String("error", err.Error()))
		return nil, apperror.ValidationFailed("access_token", confirmFailed)
	}

	// Unverified claims are only a hint; the provider has the final word.
	user, err := s.provider.GetUser(ctx, f.AccessToken)
	if err != nil {
		var gtErr *gotrue.Error
		if errors.As(err, &gtErr) {
			return nil, apperror.Unauthorized(confirmFailed)
		}
		return nil, fmt.Errorf("service: confirming email: %w", err)
	}
	if user.ID != id.UserID {
		return nil, apperror.Unauthorized(confirmFailed)
	}

	return s.establish(ctx, visitorID, *user, &oauth2.Token{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		TokenType:    "bearer",
		Expiry:       id.ExpiresAt,
	})
}

// establish caches a fresh provider session and announces it.
func (s *SessionService) establish(ctx context.Context, visitorID string, u gotrue.User, tok *oauth2.Token) (*model.Session, error) {
	sess := &model.Session{
		User:  model.User{ID: u.ID, Email: u.Email},
		Token: tok,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("service: caching session: %w", err)
	}

	s.notifier.Publish(notify.Event{
		Kind:      notify.SignedIn,
		VisitorID: visitorID,
		SessionID: sess.ID,
		Email:     sess.User.Email,
	})
	s.logger.InfoContext(ctx, "session established",
		slog.String("session_id", sess.ID),
		slog.String("user_id", sess.User.ID),
	)
	return sess, nil
}

// providerError classifies a provider refusal. Anything else (network,
// decode) is wrapped and returned unclassified.
func (s *SessionService) providerError(ctx context.Context, op auth.Op, err error) error {
	var gtErr *gotrue.Error
	if errors.As(err, &gtErr) {
		classified := auth.Classify(op, gtErr.Message)
		s.logger.InfoContext(ctx, "provider refused request",
			slog.String("op", string(op)),
			slog.String("bucket", string(classified.Bucket)),
			slog.Int("status", gtErr.Status),
			slog.String("error", gtErr.Message),
		)
		return classified
	}
	return fmt.Errorf("service: %s: %w", op, err)
}
