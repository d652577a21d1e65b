// Package geo filters and ranks candidates by great-circle distance from
// a customer.
package geo

import (
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/repairhub/pricing-engine/internal/model"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// DefaultRadiusKm is the service radius applied when a query sets none.
const DefaultRadiusKm = 10.0

// SortKey selects the final candidate ordering.
type SortKey string

const (
	SortDistance   SortKey = "distance"
	SortExperience SortKey = "experience"
)

// ParseSortKey maps an empty string to SortDistance.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDistance:
		return SortDistance, nil
	case SortExperience:
		return SortExperience, nil
	default:
		return "", eris.Errorf("geo: unknown sort key %q", s)
	}
}

// Locatable is anything with an optional position that can carry a
// computed distance.
type Locatable interface {
	Coordinates() *model.Location
	SetDistance(km float64)
	Distance() float64
	Experience() int
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b model.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Filter sets each item's distance from origin and keeps those within
// radiusKm. With a nil origin every item is kept at distance 0. Items
// without coordinates cannot be placed and are dropped when origin is set.
// A non-positive radius means DefaultRadiusKm.
func Filter[T Locatable](origin *model.Location, items []T, radiusKm float64) []T {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if origin == nil {
			it.SetDistance(0)
			out = append(out, it)
			continue
		}
		loc := it.Coordinates()
		if loc == nil {
			continue
		}
		d := Haversine(*origin, *loc)
		if d > radiusKm {
			continue
		}
		it.SetDistance(d)
		out = append(out, it)
	}
	return out
}

// Rank sorts items in place: ascending distance or descending experience.
// Equal keys keep their input order.
func Rank[T Locatable](items []T, key SortKey) {
	switch key {
	case SortExperience:
		slices.SortStableFunc(items, func(a, b T) int {
			return b.Experience() - a.Experience()
		})
	default:
		slices.SortStableFunc(items, func(a, b T) int {
			switch {
			case a.Distance() < b.Distance():
				return -1
			case a.Distance() > b.Distance():
				return 1
			default:
				return 0
			}
		})
	}
}

// FilterAndRank composes Filter and Rank.
func FilterAndRank[T Locatable](origin *model.Location, items []T, radiusKm float64, key SortKey) []T {
	out := Filter(origin, items, radiusKm)
	Rank(out, key)
	return out
}
