package catalog

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dreamware/storegrid/internal/fault"
)

// Price tiers derived from the mean product price.
const (
	TierLow    = "$"
	TierMedium = "$$"
	TierHigh   = "$$$"
)

// Product is a single item sold by a store.
type Product struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Image           string  `json:"image,omitempty"`
	Price           float64 `json:"price"`
	AvailableAmount int     `json:"availableAmount"`
	UnitsSold       int     `json:"unitsSold"`
	Active          bool    `json:"active"`
}

// NewProduct returns an active product with no sales.
func NewProduct(name, typ, image string, availableAmount int, price float64) Product {
	return Product{
		Name:            name,
		Type:            typ,
		Image:           image,
		Price:           price,
		AvailableAmount: availableAmount,
		Active:          true,
	}
}

// Revenue is unitsSold × price.
func (p Product) Revenue() float64 {
	return float64(p.UnitsSold) * p.Price
}

// Store is the unit of ownership and routing. Its Name is the shard key.
type Store struct {
	Name          string    `json:"name"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	FoodCategory  string    `json:"foodCategory"`
	Stars         int       `json:"stars"`
	Votes         int       `json:"votes"`
	Logo          string    `json:"logo,omitempty"`
	Products      []Product `json:"products"`
	PriceCategory string    `json:"priceCategory"`
	TotalSales    float64   `json:"totalSales"`
}

// Location returns the store coordinates.
func (s *Store) Location() Location {
	return Location{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Clone returns a deep copy safe to hand out after the store lock is released.
func (s *Store) Clone() Store {
	c := *s
	c.Products = append([]Product(nil), s.Products...)
	return c
}

// Validate checks the invariants a freshly loaded record must satisfy.
func (s *Store) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: store name is required", fault.ErrValidation)
	}
	if s.Stars < 0 || s.Stars > 5 {
		return fmt.Errorf("%w: stars must be between 0 and 5 in store %s", fault.ErrValidation, s.Name)
	}
	if s.Votes < 0 {
		return fmt.Errorf("%w: negative vote count in store %s", fault.ErrValidation, s.Name)
	}
	seen := make(map[string]bool, len(s.Products))
	for _, p := range s.Products {
		if p.Name == "" {
			return fmt.Errorf("%w: product name is required in store %s", fault.ErrValidation, s.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate product %s in store %s", fault.ErrValidation, p.Name, s.Name)
		}
		seen[p.Name] = true
		if p.Price < 0 || p.AvailableAmount < 0 || p.UnitsSold < 0 {
			return fmt.Errorf("%w: negative value on product %s", fault.ErrValidation, p.Name)
		}
	}
	return nil
}

// FindProduct returns the index of the named product, or -1.
func (s *Store) FindProduct(name string) int {
	return slices.IndexFunc(s.Products, func(p Product) bool { return p.Name == name })
}

// AddProduct appends p and recomputes the price tier.
func (s *Store) AddProduct(p Product) error {
	if s.FindProduct(p.Name) >= 0 {
		return fmt.Errorf("%w: product %s in store %s", fault.ErrAlreadyExists, p.Name, s.Name)
	}
	if p.Price < 0 || p.AvailableAmount < 0 {
		return fmt.Errorf("%w: price and available amount must not be negative", fault.ErrValidation)
	}
	s.Products = append(s.Products, p)
	s.RecomputePriceCategory()
	return nil
}

// ProductUpdate carries the optional fields of an update command.
// At most one of Price and Quantity may be set, and neither together with Remove.
type ProductUpdate struct {
	Price    *float64
	Quantity *int
	Remove   bool
}

// ApplyUpdate changes one product field or deactivates the product.
// It reports whether the product was deactivated.
func (s *Store) ApplyUpdate(productName string, u ProductUpdate) (bool, error) {
	i := s.FindProduct(productName)
	if i < 0 {
		return false, fmt.Errorf("%w: product %s in store %s", fault.ErrNotFound, productName, s.Name)
	}

	changes := 0
	if u.Price != nil {
		changes++
	}
	if u.Quantity != nil {
		changes++
	}
	if u.Remove {
		changes++
	}
	switch {
	case changes == 0:
		return false, fmt.Errorf("%w: update carries no change", fault.ErrValidation)
	case changes > 1:
		return false, fmt.Errorf("%w: update must change exactly one of price, quantity or remove", fault.ErrValidation)
	}

	p := &s.Products[i]
	switch {
	case u.Remove:
		p.Active = false
		return true, nil
	case u.Price != nil:
		if *u.Price < 0 {
			return false, fmt.Errorf("%w: price must not be negative", fault.ErrValidation)
		}
		p.Price = *u.Price
		s.RecomputePriceCategory()
	case u.Quantity != nil:
		if *u.Quantity < 0 {
			return false, fmt.Errorf("%w: quantity must not be negative", fault.ErrValidation)
		}
		p.AvailableAmount = *u.Quantity
	}
	return false, nil
}

// Purchase sells quantity units of the named product. On success the stock,
// the units sold and the store's total sales change together; on failure
// nothing changes. The returned amount is quantity × price.
func (s *Store) Purchase(productName string, quantity int) (float64, error) {
	i := s.FindProduct(productName)
	if i < 0 || !s.Products[i].Active {
		return 0, fmt.Errorf("%w: product %s is not available in store %s", fault.ErrValidation, productName, s.Name)
	}
	p := &s.Products[i]
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", fault.ErrValidation)
	}
	if quantity > p.AvailableAmount {
		return 0, fmt.Errorf("%w: not enough stock available for %s", fault.ErrValidation, productName)
	}

	amount := float64(quantity) * p.Price
	p.AvailableAmount -= quantity
	p.UnitsSold += quantity
	s.TotalSales += amount
	return amount, nil
}

// Rate folds a new 1..5 rating into the integer star average.
// A record with a negative vote count is treated as unrated.
func (s *Store) Rate(stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", fault.ErrValidation)
	}
	if s.Votes < 0 {
		s.Votes = 0
	}
	total := s.Stars*s.Votes + stars
	s.Votes++
	s.Stars = total / s.Votes
	return nil
}

// RecomputePriceCategory derives the price tier from all product prices.
func (s *Store) RecomputePriceCategory() {
	prices := make([]float64, len(s.Products))
	for i, p := range s.Products {
		prices[i] = p.Price
	}
	s.PriceCategory = PriceTier(prices)
}

// PriceTier classifies the mean of prices. An empty list is the lowest tier.
func PriceTier(prices []float64) string {
	if len(prices) == 0 {
		return TierLow
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	switch {
	case mean <= 5:
		return TierLow
	case mean <= 15:
		return TierMedium
	default:
		return TierHigh
	}
}
