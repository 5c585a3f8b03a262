package storefront

import (
	"net/http"
	"time"

	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/domain"
)

// SessionManager resolves the shopper's server-side session from the
// session cookie, creating one on first contact.
type SessionManager struct {
	store   domain.SessionStore
	cookies *cookie.Config
	name    string
	ttl     time.Duration
}

// NewSessionManager creates a SessionManager. name is the session
// cookie name and ttl the cookie lifetime.
func NewSessionManager(store domain.SessionStore, cookies *cookie.Config, name string, ttl time.Duration) *SessionManager {
	if name == "" {
		name = cookie.SessionCookieName
	}
	return &SessionManager{
		store:   store,
		cookies: cookies,
		name:    name,
		ttl:     ttl,
	}
}

// Current returns the session for this request, creating one (and
// setting the cookie) if the shopper has none yet.
func (m *SessionManager) Current(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	token := cookie.Get(r, m.name)

	session, err := m.store.GetOrCreate(r.Context(), token)
	if err != nil {
		return nil, err
	}

	if session.Token != token {
		m.cookies.SetSession(w, m.name, session.Token, int(m.ttl.Seconds()))
	}
	return session, nil
}

// Existing returns the session for this request without creating one.
// Returns nil when the shopper has no live session; callers that can
// proceed without one should treat nil as absence, not failure.
func (m *SessionManager) Existing(r *http.Request) *domain.Session {
	token := cookie.Get(r, m.name)
	if token == "" {
		return nil
	}

	session, err := m.store.Get(r.Context(), token)
	if err != nil {
		return nil
	}
	return session
}
