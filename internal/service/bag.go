package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/telemetry"
)

// BagService mutates the session bag. Quantities below one are coerced
// to one on add; an adjustment to zero or less removes the line.
type BagService struct {
	sessions domain.SessionStore
	catalog  domain.CatalogStore
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewBagService creates a BagService.
func NewBagService(sessions domain.SessionStore, catalog domain.CatalogStore, metrics *telemetry.Metrics, logger *slog.Logger) *BagService {
	return &BagService{
		sessions: sessions,
		catalog:  catalog,
		metrics:  metrics,
		logger:   logger,
	}
}

// Add puts quantity of a product into the session bag. The product must
// exist in the catalog; stale lines are only tolerated at settlement.
func (s *BagService) Add(ctx context.Context, session *domain.Session, productID string, quantity int) error {
	id, key, err := canonicalProductID(productID)
	if err != nil {
		return domain.Invalid("bag.add", "invalid product id")
	}

	if _, err := s.catalog.GetProduct(ctx, id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.ErrProductNotFound
		}
		return domain.Internal(err, "bag.add", "failed to look up product")
	}

	session.Bag.Add(key, quantity)
	if err := s.sessions.SaveBag(ctx, session.Token, session.Bag); err != nil {
		return domain.Internal(err, "bag.add", "failed to save bag")
	}

	s.metrics.RecordBagUpdate("add")
	return nil
}

// Adjust sets the quantity for a product already in the bag. Zero or
// negative removes the line.
func (s *BagService) Adjust(ctx context.Context, session *domain.Session, productID string, quantity int) error {
	_, key, err := canonicalProductID(productID)
	if err != nil {
		return domain.Invalid("bag.adjust", "invalid product id")
	}

	if _, exists := session.Bag[key]; !exists && quantity > 0 {
		return domain.NotFound("bag.adjust", "bag line", key)
	}

	session.Bag.Set(key, quantity)
	if err := s.sessions.SaveBag(ctx, session.Token, session.Bag); err != nil {
		return domain.Internal(err, "bag.adjust", "failed to save bag")
	}

	s.metrics.RecordBagUpdate("adjust")
	return nil
}

// Remove deletes a product line from the bag.
func (s *BagService) Remove(ctx context.Context, session *domain.Session, productID string) error {
	_, key, err := canonicalProductID(productID)
	if err != nil {
		return domain.Invalid("bag.remove", "invalid product id")
	}

	session.Bag.Remove(key)
	if err := s.sessions.SaveBag(ctx, session.Token, session.Bag); err != nil {
		return domain.Internal(err, "bag.remove", "failed to save bag")
	}

	s.metrics.RecordBagUpdate("remove")
	return nil
}

// canonicalProductID parses a product ID from the request path and
// returns the decimal form the bag stores it under. Writing "007" and
// "7" must land on the same line.
func canonicalProductID(productID string) (int64, string, error) {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", domain.Invalid("bag", "invalid product id")
	}
	return id, strconv.FormatInt(id, 10), nil
}
