package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calliehq/bramble/internal/billing"
	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/telemetry"
)

// CheckoutService drives the pre-payment side of checkout: pricing the
// bag, creating the payment intent, and staging checkout state on the
// intent so the webhook can settle without session access.
type CheckoutService struct {
	catalog  domain.CatalogStore
	sessions domain.SessionStore
	profiles domain.ProfileStore
	provider billing.Provider
	pricing  checkout.Pricing
	currency string
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(
	catalog domain.CatalogStore,
	sessions domain.SessionStore,
	profiles domain.ProfileStore,
	provider billing.Provider,
	pricing checkout.Pricing,
	currency string,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		catalog:  catalog,
		sessions: sessions,
		profiles: profiles,
		provider: provider,
		pricing:  pricing,
		currency: currency,
		metrics:  metrics,
		logger:   logger,
	}
}

// BeginResult is what the checkout page needs to render and confirm.
type BeginResult struct {
	Summary      *checkout.Summary
	PaymentRef   string
	ClientSecret string
}

// Summarize prices the session bag without side effects.
func (s *CheckoutService) Summarize(ctx context.Context, bag domain.Bag) (*checkout.Summary, error) {
	return checkout.Summarize(ctx, s.catalog, bag, s.pricing)
}

// Begin prices the session's bag and creates a payment intent sized to
// the grand total. The intent initially carries only the session token
// and bag snapshot; shipping fields are staged later by Cache once the
// shopper submits the form.
func (s *CheckoutService) Begin(ctx context.Context, session *domain.Session) (*BeginResult, error) {
	summary, err := checkout.Summarize(ctx, s.catalog, session.Bag, s.pricing)
	if err != nil {
		return nil, err
	}
	if summary.IsEmpty() {
		return nil, ErrBagEmpty
	}

	var email string
	if session.Checkout != nil {
		email = session.Checkout.Email
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents:  summary.AmountCents(),
		Currency:     s.currency,
		ReceiptEmail: email,
		Description:  "Storefront order",
		Metadata: map[string]string{
			"session_token": session.Token,
			"bag":           string(session.Bag.JSON()),
		},
	})
	if err != nil {
		s.logger.Error("failed to create payment intent",
			"session_token", session.Token,
			"amount_cents", summary.AmountCents(),
			"error", err)
		return nil, domain.WrapError(err, domain.EPAYMENT, "checkout.begin", "Payment provider is unavailable, please try again")
	}

	s.logger.Info("checkout started",
		"payment_ref", pi.ID,
		"amount_cents", summary.AmountCents(),
		"item_count", summary.ItemCount)
	s.metrics.RecordCheckoutStarted()

	return &BeginResult{
		Summary:      summary,
		PaymentRef:   pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// Cache stores the submitted shipping form before the shopper confirms
// payment. It writes two places: the session (so the browser-return
// fallback can rebuild the order locally) and the intent metadata (so
// the webhook can rebuild it with no session at all). The session write
// must succeed; a metadata attach failure is logged but does not block
// the shopper, since the browser-return fallback can still settle from
// the session.
func (s *CheckoutService) Cache(ctx context.Context, session *domain.Session, clientSecret string, data *domain.CheckoutData) error {
	paymentRef, err := PaymentRefFromClientSecret(clientSecret)
	if err != nil {
		return err
	}

	if err := s.sessions.SaveCheckout(ctx, session.Token, data); err != nil {
		return domain.Internal(err, "checkout.cache", "failed to cache checkout data")
	}

	s.linkProfile(ctx, session, data.Email)

	metadata := checkout.StageMetadata(session.Bag, data, session.ProfileID, session.Token)
	if _, err := s.provider.UpdatePaymentIntent(ctx, billing.UpdatePaymentIntentParams{
		PaymentIntentID: paymentRef,
		Metadata:        metadata,
	}); err != nil {
		s.logger.Error("failed to stage checkout metadata on payment intent",
			"payment_ref", paymentRef,
			"error", err)
	}

	return nil
}

// linkProfile attaches a returning shopper's profile to the session by
// checkout email, so the materialized order carries the profile ID and
// shows up in their order history. Best effort: a lookup or attach
// failure leaves the session anonymous rather than blocking checkout.
func (s *CheckoutService) linkProfile(ctx context.Context, session *domain.Session, email string) {
	if session.ProfileID != nil || email == "" {
		return
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			s.logger.Error("failed to look up profile by email",
				"session_token", session.Token,
				"error", err)
		}
		return
	}

	if err := s.sessions.AttachProfile(ctx, session.Token, profile.ID); err != nil {
		s.logger.Error("failed to attach profile to session",
			"session_token", session.Token,
			"profile_id", profile.ID,
			"error", err)
		return
	}
	session.ProfileID = &profile.ID
}

// PaymentRefFromClientSecret derives the payment reference from the
// client-side confirmation secret (pi_..._secret_...).
func PaymentRefFromClientSecret(clientSecret string) (string, error) {
	if clientSecret == "" {
		return "", ErrMissingClientSecret
	}
	ref, _, found := strings.Cut(clientSecret, "_secret")
	if !found || ref == "" {
		return "", fmt.Errorf("%w: malformed client secret", ErrMissingClientSecret)
	}
	return ref, nil
}
