// Package gotrue is a REST client for the hosted auth provider (Supabase
// GoTrue). It covers exactly the calls the session manager makes:
//
//	POST /auth/v1/token?grant_type=password        sign in
//	POST /auth/v1/token?grant_type=refresh_token   refresh
//	POST /auth/v1/signup?redirect_to=...           sign up
//	POST /auth/v1/resend?redirect_to=...           resend confirmation
//	POST /auth/v1/logout                           sign out (bearer)
//	GET  /auth/v1/user                             who owns this token (bearer)
//
// Every request carries the project's anon key in the "apikey" header.
//
// ERRORS:
// A non-2xx answer becomes *Error. The provider has used several shapes over
// the years ({"msg"}, {"message"}, {"error","error_description"}), so we read
// whichever is present. Callers string-match Error.Message; see
// auth.Classify.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// New creates a client for the project at supabaseURL. A nil client gets a
// 10 second timeout.
func New(supabaseURL, anonKey string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		anonKey: anonKey,
		client:  client,
	}
}

// Error is a refusal from the provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// Session is the provider's token response.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Token converts the response into oauth2 token material.
func (s *Session) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		tok.Expiry = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return tok
}

type SignUpRequest struct {
	Email      string
	Password   string
	RedirectTo string
	Data       map[string]any
}

// SignUpResult holds the new user. Session is nil when the project requires
// email confirmation, which is the usual case.
type SignUpResult struct {
	User    User
	Session *Session
}

type ResendRequest struct {
	Type       string // "signup"
	Email      string
	RedirectTo string
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	q := url.Values{}
	if req.RedirectTo != "" {
		q.Set("redirect_to", req.RedirectTo)
	}
	body := map[string]any{"email": req.Email, "password": req.Password}
	if len(req.Data) > 0 {
		body["data"] = req.Data
	}

	// The answer is either a bare user or a full session, depending on
	// whether the project auto-confirms.
	var raw struct {
		Session
		User
	}
	if err := c.do(ctx, http.MethodPost, "/signup", q, "", body, &raw); err != nil {
		return nil, err
	}

	res := &SignUpResult{User: raw.User}
	if raw.Session.AccessToken != "" {
		s := raw.Session
		res.Session = &s
		res.User = s.User
	}
	return res, nil
}

func (c *Client) Resend(ctx context.Context, req ResendRequest) error {
	q := url.Values{}
	if req.RedirectTo != "" {
		q.Set("redirect_to", req.RedirectTo)
	}
	body := map[string]string{"type": req.Type, "email": req.Email}
	return c.do(ctx, http.MethodPost, "/resend", q, "", body, nil)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// TokenSource returns tok while it is valid and refreshes it through the
// provider once it expires.
func (c *Client) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, &refresher{ctx: ctx, c: c, refreshToken: tok.RefreshToken})
}

type refresher struct {
	ctx          context.Context
	c            *Client
	refreshToken string
}

func (r *refresher) Token() (*oauth2.Token, error) {
	if r.refreshToken == "" {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Refresh token missing"}
	}
	s, err := r.c.RefreshToken(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	r.refreshToken = s.RefreshToken
	return s.Token(), nil
}

type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, bearer string, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("gotrue: building request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decoding %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}

	var b errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &b) == nil {
		e.Code = b.ErrorCode
		if e.Code == "" {
			e.Code = b.Error
		}
		for _, m := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
			if m != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
