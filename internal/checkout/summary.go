package checkout

import (
	"context"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/calliehq/bramble/internal/domain"
)

// Pricing holds the delivery pricing rules applied at summarization.
type Pricing struct {
	// FreeDeliveryThreshold is the subtotal at which delivery becomes free.
	FreeDeliveryThreshold decimal.Decimal

	// DeliveryFlatFee is charged on non-empty bags below the threshold.
	DeliveryFlatFee decimal.Decimal
}

// SummaryLine is one resolved bag line with its current catalog price.
type SummaryLine struct {
	Product   *domain.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the priced view of a bag: resolved lines plus totals.
// Lines are ordered by ascending product ID so repeated summarization
// of the same bag is stable.
type Summary struct {
	Lines     []SummaryLine `json:"lines"`
	ItemCount int           `json:"item_count"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	GrandTotal  decimal.Decimal `json:"grand_total"`

	// RemainingToFree is how much more spend unlocks free delivery.
	// Zero once the threshold is met or the bag is empty.
	RemainingToFree decimal.Decimal `json:"remaining_to_free"`
	FreeDelivery    bool            `json:"free_delivery"`
}

// AmountCents converts the grand total to the smallest currency unit
// for the payment provider.
func (s *Summary) AmountCents() int64 {
	return s.GrandTotal.Mul(decimal.NewFromInt(100)).IntPart()
}

// IsEmpty reports whether the summary settled to no purchasable lines.
func (s *Summary) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Summarize resolves a bag against the catalog and prices it.
//
// Lines referencing products that no longer exist (or were deactivated)
// are silently dropped rather than failing the whole bag; a stale line
// should never block a shopper from paying for the rest. Non-positive
// quantities are dropped the same way.
func Summarize(ctx context.Context, catalog domain.CatalogStore, bag domain.Bag, pricing Pricing) (*Summary, error) {
	// Quantities are keyed by parsed ID, not by the raw map key, so a
	// bag that somehow holds both "7" and "007" settles to one line.
	quantities := make(map[int64]int, len(bag))
	for key, qty := range bag {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 || qty <= 0 {
			continue
		}
		quantities[id] += qty
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summary := &Summary{
		Subtotal:        decimal.Zero,
		DeliveryFee:     decimal.Zero,
		GrandTotal:      decimal.Zero,
		RemainingToFree: decimal.Zero,
	}

	if len(ids) > 0 {
		products, err := catalog.GetActiveProducts(ctx, ids)
		if err != nil {
			return nil, domain.Internal(err, "checkout.summarize", "failed to load bag products")
		}

		for _, id := range ids {
			product, ok := products[id]
			if !ok {
				continue
			}

			qty := quantities[id]
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))

			summary.Lines = append(summary.Lines, SummaryLine{
				Product:   product,
				Quantity:  qty,
				LineTotal: lineTotal,
			})
			summary.ItemCount += qty
			summary.Subtotal = summary.Subtotal.Add(lineTotal)
		}
	}

	summary.DeliveryFee, summary.FreeDelivery, summary.RemainingToFree = deliveryFee(summary.Subtotal, pricing)
	summary.GrandTotal = summary.Subtotal.Add(summary.DeliveryFee)

	return summary, nil
}

// deliveryFee applies the flat-fee-with-free-threshold rule.
// An empty bag is never charged delivery.
func deliveryFee(subtotal decimal.Decimal, pricing Pricing) (fee decimal.Decimal, free bool, remaining decimal.Decimal) {
	if subtotal.IsZero() || !subtotal.IsPositive() {
		return decimal.Zero, false, decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(pricing.FreeDeliveryThreshold) {
		return decimal.Zero, true, decimal.Zero
	}
	return pricing.DeliveryFlatFee, false, pricing.FreeDeliveryThreshold.Sub(subtotal)
}
