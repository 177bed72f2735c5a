package catalog

import "math"

// EarthRadiusKm is the mean Earth radius used by the proximity filter.
const EarthRadiusKm = 6371.0

// NearbyKm is the inclusive radius of the proximity filter.
const NearbyKm = 5.0

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Nearby reports whether b lies within NearbyKm of a, boundary included.
func Nearby(a, b Location) bool {
	return DistanceKm(a, b) <= NearbyKm
}

// FilterNearby keeps the stores within NearbyKm of origin, preserving order.
func FilterNearby(origin Location, stores []Store) []Store {
	out := make([]Store, 0, len(stores))
	for _, s := range stores {
		if Nearby(origin, s.Location()) {
			out = append(out, s)
		}
	}
	return out
}

// Criteria is the filter a search broadcasts to every shard.
type Criteria struct {
	FoodCategory  string `json:"foodCategory"`
	MinStars      int    `json:"stars"`
	PriceCategory string `json:"priceCategory"`
}

// Matches applies the category, price tier and minimum star predicate.
func (c Criteria) Matches(s *Store) bool {
	return s.FoodCategory == c.FoodCategory &&
		s.PriceCategory == c.PriceCategory &&
		s.Stars >= c.MinStars
}

// Filter returns the stores matching c, preserving order.
func (c Criteria) Filter(stores []Store) []Store {
	out := make([]Store, 0, len(stores))
	for i := range stores {
		if c.Matches(&stores[i]) {
			out = append(out, stores[i])
		}
	}
	return out
}
