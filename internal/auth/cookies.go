package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// Cookie names.
const (
	SessionCookie = "session"
	PendingCookie = "pending_confirmation"
	VisitorCookie = "visitor"
	FlashCookie   = "flash"
)

const (
	sessionTTL = 30 * 24 * time.Hour
	pendingTTL = time.Hour
	visitorTTL = 365 * 24 * time.Hour
	flashTTL   = time.Minute
)

// Cookies writes and reads the cookies this server issues.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly everywhere: page scripts never need to read them
//   - SameSite=Lax: sent on top-level navigations, not on cross-site posts
//   - Secure when the site is served over https
type Cookies struct {
	tokens *TokenService
	secure bool
}

func NewCookies(tokens *TokenService, secure bool) *Cookies {
	return &Cookies{tokens: tokens, secure: secure}
}

func (c *Cookies) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookies) SetSession(w http.ResponseWriter, sessionID string) error {
	token, err := c.tokens.Generate(PurposeSession, sessionID, sessionTTL)
	if err != nil {
		return err
	}
	c.set(w, SessionCookie, token, sessionTTL)
	return nil
}

func (c *Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookie)
}

// SessionID returns the session id carried by a valid session cookie.
func (c *Cookies) SessionID(r *http.Request) (string, bool) {
	return c.validated(r, SessionCookie, PurposeSession)
}

func (c *Cookies) SetPending(w http.ResponseWriter, email string) error {
	token, err := c.tokens.Generate(PurposePending, email, pendingTTL)
	if err != nil {
		return err
	}
	c.set(w, PendingCookie, token, pendingTTL)
	return nil
}

func (c *Cookies) ClearPending(w http.ResponseWriter) {
	c.clear(w, PendingCookie)
}

// PendingEmail returns the email waiting for confirmation, if any.
func (c *Cookies) PendingEmail(r *http.Request) (string, bool) {
	return c.validated(r, PendingCookie, PurposePending)
}

func (c *Cookies) validated(r *http.Request, name, purpose string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sub, err := c.tokens.Validate(purpose, cookie.Value)
	if err != nil {
		return "", false
	}
	return sub, true
}

// SetFlash queues a banner for the next page render.
func (c *Cookies) SetFlash(w http.ResponseWriter, f Flash) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.set(w, FlashCookie, base64.RawURLEncoding.EncodeToString(raw), flashTTL)
}

// TakeFlash reads and clears the queued banner.
func (c *Cookies) TakeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.clear(w, FlashCookie)

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Text == "" {
		return nil
	}
	switch f.Kind {
	case FlashSuccess, FlashError, FlashInfo:
	default:
		f.Kind = FlashInfo
	}
	return &f
}

// Visitor returns the visitor id, issuing a new one when the browser has
// none. The id keys live notifications and search ordering; it grants no
// access on its own.
func (c *Cookies) Visitor(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(VisitorCookie); err == nil {
		if id, err := xid.FromString(cookie.Value); err == nil {
			return id.String()
		}
	}
	id := xid.New().String()
	c.set(w, VisitorCookie, id, visitorTTL)
	return id
}
