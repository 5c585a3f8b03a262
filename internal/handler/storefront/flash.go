package storefront

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/calliehq/bramble/internal/cookie"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string `json:"kind"` // "success", "info", "error"
	Message string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// SetFlash stores a flash message for the next request.
func SetFlash(w http.ResponseWriter, cookies *cookie.Config, kind, message string) {
	payload, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	cookies.SetSession(w, cookie.FlashCookieName, base64.URLEncoding.EncodeToString(payload), 60)
}

// PopFlash reads and clears the pending flash message, if any.
func PopFlash(w http.ResponseWriter, r *http.Request, cookies *cookie.Config) *Flash {
	value := cookie.Get(r, cookie.FlashCookieName)
	if value == "" {
		return nil
	}
	cookies.ClearSession(w, cookie.FlashCookieName)

	payload, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}

	var flash Flash
	if err := json.Unmarshal(payload, &flash); err != nil {
		return nil
	}
	return &flash
}
