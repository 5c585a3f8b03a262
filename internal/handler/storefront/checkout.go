package storefront

import (
	"context"
	"net/http"

	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/handler"
	"github.com/calliehq/bramble/internal/service"
)

// CheckoutStarter drives the pre-payment side of checkout.
type CheckoutStarter interface {
	Begin(ctx context.Context, session *domain.Session) (*service.BeginResult, error)
	Cache(ctx context.Context, session *domain.Session, clientSecret string, data *domain.CheckoutData) error
}

// CheckoutHandler handles the pre-payment checkout routes.
type CheckoutHandler struct {
	sessions       *SessionManager
	checkouts      CheckoutStarter
	profiles       domain.ProfileStore
	cookies        *cookie.Config
	publishableKey string
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(
	sessions *SessionManager,
	checkouts CheckoutStarter,
	profiles domain.ProfileStore,
	cookies *cookie.Config,
	publishableKey string,
) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:       sessions,
		checkouts:      checkouts,
		profiles:       profiles,
		cookies:        cookies,
		publishableKey: publishableKey,
	}
}

// checkoutPage is the response for GET /checkout.
type checkoutPage struct {
	Summary        *checkout.Summary    `json:"summary"`
	ClientSecret   string               `json:"client_secret"`
	PublishableKey string               `json:"publishable_key"`
	Prefill        *domain.CheckoutData `json:"prefill,omitempty"`
	Flash          *Flash               `json:"flash,omitempty"`
}

// Page handles GET /checkout
func (h *CheckoutHandler) Page(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if session.Bag.IsEmpty() {
		http.Redirect(w, r, "/bag", http.StatusSeeOther)
		return
	}

	result, err := h.checkouts.Begin(r.Context(), session)
	if err != nil {
		if domain.IsCode(err, domain.EINVALID) {
			http.Redirect(w, r, "/bag", http.StatusSeeOther)
			return
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	page := checkoutPage{
		Summary:        result.Summary,
		ClientSecret:   result.ClientSecret,
		PublishableKey: h.publishableKey,
		Prefill:        h.prefill(r.Context(), session),
		Flash:          PopFlash(w, r, h.cookies),
	}
	handler.JSON(w, http.StatusOK, page)
}

// Cache handles POST /checkout/cache
//
// Saves the submitted shipping form to the session and stages it on the
// payment intent so the webhook can settle the order without a session.
func (h *CheckoutHandler) Cache(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("checkout.cache", "invalid form data"))
		return
	}

	clientSecret := r.FormValue("client_secret")
	data := &domain.CheckoutData{
		FullName: r.FormValue("full_name"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Address1: r.FormValue("address1"),
		Address2: r.FormValue("address2"),
		City:     r.FormValue("city"),
		County:   r.FormValue("county"),
		Postcode: r.FormValue("postcode"),
		Country:  r.FormValue("country"),
		SaveInfo: r.FormValue("save_info") == "on" || r.FormValue("save_info") == "true",
	}

	if err := validateCheckoutData(data); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	if err := h.checkouts.Cache(r.Context(), session, clientSecret, data); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

// prefill returns saved shipping details for returning shoppers. The
// cached form from this session wins over the stored profile.
func (h *CheckoutHandler) prefill(ctx context.Context, session *domain.Session) *domain.CheckoutData {
	if session.Checkout != nil {
		return session.Checkout
	}
	if session.ProfileID == nil {
		return nil
	}

	profile, err := h.profiles.Get(ctx, *session.ProfileID)
	if err != nil {
		return nil
	}
	return &domain.CheckoutData{
		FullName: profile.FullName,
		Email:    profile.Email,
		Phone:    profile.Phone,
		Address1: profile.Address1,
		Address2: profile.Address2,
		City:     profile.City,
		County:   profile.County,
		Postcode: profile.Postcode,
		Country:  profile.Country,
	}
}

func validateCheckoutData(data *domain.CheckoutData) error {
	var err error
	check := func(field, value, message string) {
		if value != "" {
			return
		}
		if err == nil {
			err = domain.NewValidationError("checkout.cache", field, message)
		} else {
			err = domain.AddFieldError(err, field, message)
		}
	}

	check("full_name", data.FullName, "full name is required")
	check("email", data.Email, "email is required")
	check("address1", data.Address1, "address is required")
	check("city", data.City, "city is required")
	check("postcode", data.Postcode, "postcode is required")
	check("country", data.Country, "country is required")
	return err
}
