package domain

import "strings"

const (
	DefaultBaseRate = 2000.0
	ChildFareRatio  = 0.5
)

// Estimate returns (adults*base + children*base*0.5), multiplied by the room
// count only for lodging-like bookings. Counts below their floors are clamped first.
func Estimate(sel TravelerSelection, base float64, lodging bool) float64 {
	sel = sel.Clamped()
	total := float64(sel.Adults)*base + float64(sel.Children)*base*ChildFareRatio
	if lodging {
		total *= float64(sel.Rooms)
	}
	return total
}

// BaseRate prefers the item's listed price and falls back to the configured rate.
func BaseRate(listed, fallback float64) float64 {
	if listed > 0 {
		return listed
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultBaseRate
}

// IsLodging reports whether rooms scale the price for the given booking type.
// Flights, trains, buses and cabs are point-to-point.
func IsLodging(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "hotel", "hotels", "holiday", "holidays", "package", "packages", "destination", "destinations":
		return true
	}
	return false
}

type SearchCriteria struct {
	Category    string
	From        string
	To          string
	City        string
	Destination string
	Travelers   TravelerSelection
}

func (c SearchCriteria) Empty() bool {
	for _, v := range []string{c.From, c.To, c.City, c.Destination} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func filled(v string) bool { return strings.TrimSpace(v) != "" }

// Ready reports whether the criteria the category's search form requires are
// present: both ends of a flight, the city for hotels (the category page sends
// it as To), the destination for holidays, and either end for ground transport.
func (c SearchCriteria) Ready() bool {
	switch strings.ToLower(strings.TrimSpace(c.Category)) {
	case "flight", "flights":
		return filled(c.From) && filled(c.To)
	case "hotel", "hotels":
		return filled(c.City) || filled(c.To)
	case "holiday", "holidays":
		return filled(c.Destination)
	}
	return filled(c.From) || filled(c.To)
}

// searchLodging is narrower than IsLodging: only hotel searches scale by rooms.
func searchLodging(category string) bool {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "hotel", "hotels":
		return true
	}
	return false
}

// EstimateSearch returns ok=false until the category's required criteria have
// been entered, so callers can tell "no estimate yet" apart from a zero price.
func EstimateSearch(c SearchCriteria, base float64) (float64, bool) {
	if c.Empty() || !c.Ready() {
		return 0, false
	}
	return Estimate(c.Travelers, BaseRate(0, base), searchLodging(c.Category)), true
}
