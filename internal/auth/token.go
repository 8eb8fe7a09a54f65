// Package auth owns the session token for the store API. The holder is an
// explicitly constructed object passed to the clients that need it, with
// SetAuth/ClearAuth lifecycle, replacing any process-wide mutable state.
package auth

import (
	"sync"

	"rugby-livescore-service/internal/domain"
)

// TokenHolder is a concurrency-safe holder for the current session.
type TokenHolder struct {
	mu       sync.RWMutex
	token    string
	user     domain.User
	hasUser  bool
	onExpiry func()
}

// NewTokenHolder returns an empty, unauthenticated holder.
func NewTokenHolder() *TokenHolder {
	return &TokenHolder{}
}

// SetAuth stores the session token and user.
func (h *TokenHolder) SetAuth(user domain.User, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.user = user
	h.hasUser = true
}

// ClearAuth discards the session.
func (h *TokenHolder) ClearAuth() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
	h.user = domain.User{}
	h.hasUser = false
}

// Token returns the current token, empty when unauthenticated. Satisfies
// livescore.TokenSource.
func (h *TokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// User returns the authenticated user, false when none is set.
func (h *TokenHolder) User() (domain.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user, h.hasUser
}

// IsAuthenticated reports whether a token is held.
func (h *TokenHolder) IsAuthenticated() bool {
	return h.Token() != ""
}

// OnExpiry registers a callback fired by Expire, typically wired to the
// store client's 401 hook.
func (h *TokenHolder) OnExpiry(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onExpiry = fn
}

// Expire clears the session and fires the expiry callback. Called when the
// store reports the session is no longer valid.
func (h *TokenHolder) Expire() {
	h.mu.Lock()
	fn := h.onExpiry
	h.token = ""
	h.user = domain.User{}
	h.hasUser = false
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}
