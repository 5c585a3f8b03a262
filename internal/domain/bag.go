package domain

import (
	"encoding/json"
)

// Bag maps product IDs (as decimal strings) to quantities.
// It lives in the session between requests and is serialized to JSON
// when handed to the payment provider as intent metadata.
type Bag map[string]int

// ParseBag decodes a JSON bag, tolerating anything that isn't a
// string-to-int object by returning an empty bag. A bag that fails to
// decode is treated the same as no bag at all.
func ParseBag(data []byte) Bag {
	if len(data) == 0 {
		return Bag{}
	}

	var b Bag
	if err := json.Unmarshal(data, &b); err != nil || b == nil {
		return Bag{}
	}
	return b
}

// JSON serializes the bag for storage or intent metadata.
func (b Bag) JSON() []byte {
	if b == nil {
		b = Bag{}
	}
	data, _ := json.Marshal(b)
	return data
}

// Add adds quantity of a product to the bag. Quantities below one are
// coerced to one; adding to an existing line increments it.
func (b Bag) Add(productID string, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	b[productID] = b[productID] + quantity
}

// Set replaces the quantity for a product. A quantity of zero or less
// removes the line entirely.
func (b Bag) Set(productID string, quantity int) {
	if quantity <= 0 {
		delete(b, productID)
		return
	}
	b[productID] = quantity
}

// Remove deletes a product line from the bag.
func (b Bag) Remove(productID string) {
	delete(b, productID)
}

// Count returns the total number of units across all lines.
func (b Bag) Count() int {
	var total int
	for _, qty := range b {
		if qty > 0 {
			total += qty
		}
	}
	return total
}

// IsEmpty reports whether the bag holds no positive-quantity lines.
func (b Bag) IsEmpty() bool {
	return b.Count() == 0
}

// Clone returns an independent copy of the bag.
func (b Bag) Clone() Bag {
	c := make(Bag, len(b))
	for id, qty := range b {
		c[id] = qty
	}
	return c
}
