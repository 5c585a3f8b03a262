package storefront

import (
	"context"
	"time"

	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/service"
)

type mockSessionStore struct {
	GetOrCreateFunc        func(ctx context.Context, token string) (*domain.Session, error)
	GetFunc                func(ctx context.Context, token string) (*domain.Session, error)
	SaveBagFunc            func(ctx context.Context, token string, bag domain.Bag) error
	SaveCheckoutFunc       func(ctx context.Context, token string, data *domain.CheckoutData) error
	AttachProfileFunc      func(ctx context.Context, token string, profileID int64) error
	ClearCheckoutStateFunc func(ctx context.Context, token string) error
}

func (m *mockSessionStore) GetOrCreate(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, token)
	}
	if token == "" {
		token = "tok_new"
	}
	return &domain.Session{
		ID:        1,
		Token:     token,
		Bag:       domain.Bag{},
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, token)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockSessionStore) SaveBag(ctx context.Context, token string, bag domain.Bag) error {
	if m.SaveBagFunc != nil {
		return m.SaveBagFunc(ctx, token, bag)
	}
	return nil
}

func (m *mockSessionStore) SaveCheckout(ctx context.Context, token string, data *domain.CheckoutData) error {
	if m.SaveCheckoutFunc != nil {
		return m.SaveCheckoutFunc(ctx, token, data)
	}
	return nil
}

func (m *mockSessionStore) AttachProfile(ctx context.Context, token string, profileID int64) error {
	if m.AttachProfileFunc != nil {
		return m.AttachProfileFunc(ctx, token, profileID)
	}
	return nil
}

func (m *mockSessionStore) ClearCheckoutState(ctx context.Context, token string) error {
	if m.ClearCheckoutStateFunc != nil {
		return m.ClearCheckoutStateFunc(ctx, token)
	}
	return nil
}

func (m *mockSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockBagEditor struct {
	AddFunc    func(ctx context.Context, session *domain.Session, productID string, quantity int) error
	AdjustFunc func(ctx context.Context, session *domain.Session, productID string, quantity int) error
	RemoveFunc func(ctx context.Context, session *domain.Session, productID string) error
}

func (m *mockBagEditor) Add(ctx context.Context, session *domain.Session, productID string, quantity int) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, session, productID, quantity)
	}
	return nil
}

func (m *mockBagEditor) Adjust(ctx context.Context, session *domain.Session, productID string, quantity int) error {
	if m.AdjustFunc != nil {
		return m.AdjustFunc(ctx, session, productID, quantity)
	}
	return nil
}

func (m *mockBagEditor) Remove(ctx context.Context, session *domain.Session, productID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, session, productID)
	}
	return nil
}

type mockPricer struct {
	SummarizeFunc func(ctx context.Context, bag domain.Bag) (*checkout.Summary, error)
}

func (m *mockPricer) Summarize(ctx context.Context, bag domain.Bag) (*checkout.Summary, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, bag)
	}
	return &checkout.Summary{}, nil
}

type mockCheckoutStarter struct {
	BeginFunc func(ctx context.Context, session *domain.Session) (*service.BeginResult, error)
	CacheFunc func(ctx context.Context, session *domain.Session, clientSecret string, data *domain.CheckoutData) error

	CacheCalls []domain.CheckoutData
}

func (m *mockCheckoutStarter) Begin(ctx context.Context, session *domain.Session) (*service.BeginResult, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, session)
	}
	return &service.BeginResult{
		Summary:      &checkout.Summary{ItemCount: 1},
		PaymentRef:   "pi_test_123",
		ClientSecret: "pi_test_123_secret_abc",
	}, nil
}

func (m *mockCheckoutStarter) Cache(ctx context.Context, session *domain.Session, clientSecret string, data *domain.CheckoutData) error {
	if data != nil {
		m.CacheCalls = append(m.CacheCalls, *data)
	}
	if m.CacheFunc != nil {
		return m.CacheFunc(ctx, session, clientSecret, data)
	}
	return nil
}

type mockProfileStore struct {
	GetFunc func(ctx context.Context, id int64) (*domain.Profile, error)
}

func (m *mockProfileStore) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileStore) SaveShipping(ctx context.Context, id int64, data *domain.CheckoutData) error {
	return nil
}

type mockReconciler struct {
	ReconcileFunc func(ctx context.Context, session *domain.Session, clientSecret string) (*service.ReconcileResult, error)

	Sessions []*domain.Session
	Secrets  []string
}

func (m *mockReconciler) Reconcile(ctx context.Context, session *domain.Session, clientSecret string) (*service.ReconcileResult, error) {
	m.Sessions = append(m.Sessions, session)
	m.Secrets = append(m.Secrets, clientSecret)
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, session, clientSecret)
	}
	return &service.ReconcileResult{
		Status: service.ReconcileDone,
		Order:  &domain.Order{OrderNumber: "ORD-20240101-ABCDEF"},
	}, nil
}

type mockOrderReader struct {
	GetByNumberFunc   func(ctx context.Context, orderNumber string) (*domain.Order, error)
	LineItemsFunc     func(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error)
	ListByProfileFunc func(ctx context.Context, profileID int64) ([]*domain.Order, error)
}

func (m *mockOrderReader) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, orderNumber)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderReader) LineItems(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error) {
	if m.LineItemsFunc != nil {
		return m.LineItemsFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *mockOrderReader) ListByProfile(ctx context.Context, profileID int64) ([]*domain.Order, error) {
	if m.ListByProfileFunc != nil {
		return m.ListByProfileFunc(ctx, profileID)
	}
	return nil, nil
}

func testSessionManager(store domain.SessionStore) *SessionManager {
	return NewSessionManager(store, cookie.NewConfig(false), cookie.SessionCookieName, time.Hour)
}
