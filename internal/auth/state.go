package auth

import (
	"context"

	"github.com/sakif/movie-watchlist/internal/model"
)

// FlashKind selects the banner style.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a one-shot banner shown on the next page render.
type Flash struct {
	Kind FlashKind `json:"k"`
	Text string    `json:"t"`
}

// State is everything the page needs to know about the visitor for one
// request. It replaces page-global "current user" and "pending email"
// variables: each request gets its own, built by LoadState.
type State struct {
	VisitorID    string
	Session      *model.Session // nil when signed out
	PendingEmail string         // set while a confirmation link is outstanding
	Flash        *Flash
}

// SignedIn reports whether a session is active.
func (s *State) SignedIn() bool {
	return s != nil && s.Session != nil
}

type contextKey string

const stateKey contextKey = "authState"

func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// StateFromContext returns the request's State. It never returns nil: a
// request that did not pass through LoadState gets an empty, signed-out
// State.
func StateFromContext(ctx context.Context) *State {
	if s, ok := ctx.Value(stateKey).(*State); ok && s != nil {
		return s
	}
	return &State{}
}
