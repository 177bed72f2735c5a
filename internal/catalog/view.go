package catalog

// ProductView is the client-facing shape of an active product.
type ProductView struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Price           float64 `json:"price"`
	AvailableAmount int     `json:"availableAmount"`
	Image           string  `json:"image,omitempty"`
}

// StoreView is the client-facing shape of a store.
type StoreView struct {
	Name          string        `json:"storeName"`
	FoodCategory  string        `json:"foodCategory"`
	PriceCategory string        `json:"priceCategory"`
	Stars         int           `json:"stars"`
	Logo          string        `json:"logo,omitempty"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	Products      []ProductView `json:"products"`
}

// View projects s onto its client-facing shape, listing active products only.
func (s *Store) View() StoreView {
	v := StoreView{
		Name:          s.Name,
		FoodCategory:  s.FoodCategory,
		PriceCategory: s.PriceCategory,
		Stars:         s.Stars,
		Logo:          s.Logo,
		Latitude:      s.Latitude,
		Longitude:     s.Longitude,
		Products:      make([]ProductView, 0, len(s.Products)),
	}
	for _, p := range s.Products {
		if !p.Active {
			continue
		}
		v.Products = append(v.Products, ProductView{
			Name:            p.Name,
			Type:            p.Type,
			Price:           p.Price,
			AvailableAmount: p.AvailableAmount,
			Image:           p.Image,
		})
	}
	return v
}

// Views projects every store in stores.
func Views(stores []Store) []StoreView {
	out := make([]StoreView, 0, len(stores))
	for i := range stores {
		out = append(out, stores[i].View())
	}
	return out
}
