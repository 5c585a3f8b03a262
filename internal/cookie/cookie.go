// Package cookie provides small helpers for the storefront's session
// and flash cookies.
package cookie

import "net/http"

// Config holds cookie security settings shared by all cookies the
// storefront sets.
type Config struct {
	// Secure requires HTTPS. True in production, false in development.
	Secure bool
}

// NewConfig creates a cookie configuration.
func NewConfig(secure bool) *Config {
	return &Config{Secure: secure}
}

// SetSession sets an HttpOnly session cookie.
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession removes a cookie by name.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request. Returns empty string
// if the cookie is not present.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Common cookie names used throughout the storefront.
const (
	// SessionCookieName carries the opaque session token that keys the
	// server-side bag and cached checkout data.
	SessionCookieName = "bramble_session"

	// FlashCookieName carries one-shot messages across redirects.
	FlashCookieName = "bramble_flash"
)
