package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMirrorApply(t *testing.T) {
	m := NewMirror()

	in := Event{Kind: SignedIn, VisitorID: "v1", SessionID: "s1"}

	assert.True(t, m.Apply(in), "first sign in changes state")
	assert.False(t, m.Apply(in), "the same sign in pushed again is a no-op")
	assert.True(t, m.SignedIn("v1"))

	assert.False(t, m.Apply(Event{Kind: TokenRefreshed, VisitorID: "v1", SessionID: "s1"}),
		"a refresh of the current session changes nothing visible")

	assert.True(t, m.Apply(Event{Kind: SignedIn, VisitorID: "v1", SessionID: "s2"}),
		"a different session is a change")

	assert.True(t, m.Apply(Event{Kind: SignedOut, VisitorID: "v1"}))
	assert.False(t, m.Apply(Event{Kind: SignedOut, VisitorID: "v1"}), "already signed out")
	assert.False(t, m.SignedIn("v1"))
}

func TestMirrorVisitorsAreIndependent(t *testing.T) {
	m := NewMirror()

	assert.True(t, m.Apply(Event{Kind: SignedIn, VisitorID: "v1", SessionID: "s1"}))
	assert.True(t, m.Apply(Event{Kind: SignedIn, VisitorID: "v2", SessionID: "s1"}))
	assert.False(t, m.Apply(Event{Kind: SignedOut, VisitorID: "v3"}), "unknown visitors start signed out")
}

func TestMirrorRefreshAfterRestartCountsAsSignIn(t *testing.T) {
	m := NewMirror()

	assert.True(t, m.Apply(Event{Kind: TokenRefreshed, VisitorID: "v1", SessionID: "s1"}))
	assert.True(t, m.SignedIn("v1"))
}
