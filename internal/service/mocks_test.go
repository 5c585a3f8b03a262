package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
)

// testLogger discards output so test runs stay quiet.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPricing() checkout.Pricing {
	return checkout.Pricing{
		FreeDeliveryThreshold: decimal.RequireFromString("50.00"),
		DeliveryFlatFee:       decimal.RequireFromString("4.99"),
	}
}

func int64Ptr(v int64) *int64 { return &v }

// mockCatalogStore implements domain.CatalogStore with a fixed product set.
type mockCatalogStore struct {
	Products map[int64]*domain.Product

	GetActiveProductsFunc func(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

func newMockCatalog(products ...*domain.Product) *mockCatalogStore {
	m := &mockCatalogStore{Products: make(map[int64]*domain.Product)}
	for _, p := range products {
		m.Products[p.ID] = p
	}
	return m
}

func (m *mockCatalogStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.Products[id]
	if !ok || !p.Active {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalogStore) GetActiveProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if m.GetActiveProductsFunc != nil {
		return m.GetActiveProductsFunc(ctx, ids)
	}
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := m.Products[id]; ok && p.Active {
			out[id] = p
		}
	}
	return out, nil
}

// mockOrderStore implements domain.OrderStore in memory, keyed by
// payment reference like the real table's unique constraint.
type mockOrderStore struct {
	Orders map[string]*domain.Order
	Items  map[int64][]domain.OrderLineItem

	CreateFunc          func(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error
	GetByPaymentRefFunc func(ctx context.Context, paymentRef string) (*domain.Order, error)

	CreateCalls int
	nextID      int64
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		Orders: make(map[string]*domain.Order),
		Items:  make(map[int64][]domain.OrderLineItem),
	}
}

func (m *mockOrderStore) Create(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	m.CreateCalls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order, items)
	}
	if _, exists := m.Orders[order.PaymentRef]; exists {
		return domain.ErrDuplicatePaymentRef
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	m.Orders[order.PaymentRef] = order
	m.Items[order.ID] = items
	return nil
}

func (m *mockOrderStore) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Order, error) {
	if m.GetByPaymentRefFunc != nil {
		return m.GetByPaymentRefFunc(ctx, paymentRef)
	}
	order, ok := m.Orders[paymentRef]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderStore) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	for _, order := range m.Orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderStore) LineItems(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error) {
	return m.Items[orderID], nil
}

func (m *mockOrderStore) ListByProfile(ctx context.Context, profileID int64) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range m.Orders {
		if order.ProfileID != nil && *order.ProfileID == profileID {
			out = append(out, order)
		}
	}
	return out, nil
}

// mockSessionStore implements domain.SessionStore in memory.
type mockSessionStore struct {
	Sessions map[string]*domain.Session

	SaveCheckoutFunc       func(ctx context.Context, token string, data *domain.CheckoutData) error
	ClearCheckoutStateFunc func(ctx context.Context, token string) error

	ClearedTokens []string
}

func newMockSessionStore(sessions ...*domain.Session) *mockSessionStore {
	m := &mockSessionStore{Sessions: make(map[string]*domain.Session)}
	for _, s := range sessions {
		m.Sessions[s.Token] = s
	}
	return m
}

func (m *mockSessionStore) GetOrCreate(ctx context.Context, token string) (*domain.Session, error) {
	if s, ok := m.Sessions[token]; ok {
		return s, nil
	}
	s := &domain.Session{Token: "tok_new", Bag: domain.Bag{}}
	m.Sessions[s.Token] = s
	return s, nil
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	s, ok := m.Sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionStore) SaveBag(ctx context.Context, token string, bag domain.Bag) error {
	if s, ok := m.Sessions[token]; ok {
		s.Bag = bag
	}
	return nil
}

func (m *mockSessionStore) SaveCheckout(ctx context.Context, token string, data *domain.CheckoutData) error {
	if m.SaveCheckoutFunc != nil {
		return m.SaveCheckoutFunc(ctx, token, data)
	}
	if s, ok := m.Sessions[token]; ok {
		s.Checkout = data
	}
	return nil
}

func (m *mockSessionStore) AttachProfile(ctx context.Context, token string, profileID int64) error {
	if s, ok := m.Sessions[token]; ok {
		s.ProfileID = &profileID
	}
	return nil
}

func (m *mockSessionStore) ClearCheckoutState(ctx context.Context, token string) error {
	m.ClearedTokens = append(m.ClearedTokens, token)
	if m.ClearCheckoutStateFunc != nil {
		return m.ClearCheckoutStateFunc(ctx, token)
	}
	if s, ok := m.Sessions[token]; ok {
		s.Bag = domain.Bag{}
		s.Checkout = nil
	}
	return nil
}

func (m *mockSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// mockProfileStore implements domain.ProfileStore.
type mockProfileStore struct {
	SaveShippingFunc func(ctx context.Context, id int64, data *domain.CheckoutData) error
	GetByEmailFunc   func(ctx context.Context, email string) (*domain.Profile, error)

	Profiles      map[int64]*domain.Profile
	SavedShipping map[int64]*domain.CheckoutData
}

func newMockProfileStore(profiles ...*domain.Profile) *mockProfileStore {
	m := &mockProfileStore{
		Profiles:      make(map[int64]*domain.Profile),
		SavedShipping: make(map[int64]*domain.CheckoutData),
	}
	for _, p := range profiles {
		m.Profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileStore) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	if p, ok := m.Profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	for _, p := range m.Profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileStore) SaveShipping(ctx context.Context, id int64, data *domain.CheckoutData) error {
	if m.SaveShippingFunc != nil {
		return m.SaveShippingFunc(ctx, id, data)
	}
	m.SavedShipping[id] = data
	return nil
}

// mockConfirmationSender records confirmation sends.
type mockConfirmationSender struct {
	SendFunc func(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error

	Sent []*domain.Order
}

func (m *mockConfirmationSender) SendOrderConfirmation(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	m.Sent = append(m.Sent, order)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, order, items)
	}
	return nil
}
