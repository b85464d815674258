package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
)

// SessionRestorer looks up a cached provider session, refreshing its tokens
// when they have expired.
type SessionRestorer interface {
	Restore(ctx context.Context, visitorID, sessionID string) (*model.Session, error)
}

// LoadState builds the request's State from its cookies and stores it in the
// request context.
//
// ORDER:
//  1. visitor id (issued if missing)
//  2. session cookie → cached session (refreshed if needed)
//  3. pending-confirmation cookie
//  4. flash banner (read once, then cleared)
//
// A session that no longer exists or was rejected by the provider clears
// the cookie. A transient failure (provider unreachable) leaves the cookie
// alone and renders this one request as signed out.
func LoadState(cookies *Cookies, sessions SessionRestorer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := &State{VisitorID: cookies.Visitor(w, r)}

			if sid, ok := cookies.SessionID(r); ok {
				sess, err := sessions.Restore(r.Context(), st.VisitorID, sid)
				switch {
				case err == nil:
					st.Session = sess
				case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrUnauthorized):
					cookies.ClearSession(w)
				default:
					logger.WarnContext(r.Context(), "restoring session",
						slog.String("session_id", sid),
						slog.String("error", err.Error()),
					)
				}
			}

			if email, ok := cookies.PendingEmail(r); ok {
				st.PendingEmail = email
			}

			// Fragment requests do not consume the banner; only full pages show it.
			if r.Method == http.MethodGet && r.URL.Path == "/" {
				st.Flash = cookies.TakeFlash(w, r)
			}

			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
		})
	}
}

// RequireSession rejects requests without an active session with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !StateFromContext(r.Context()).SignedIn() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Please log in first"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
