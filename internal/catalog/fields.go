package catalog

import "github.com/robertarktes/travel-storefront/internal/domain"

func destinationFields(d domain.Destination) []string {
	return []string{d.Name, d.Country}
}

func packageFields(p domain.Package) []string {
	return []string{p.Title}
}

func listingFields(l domain.CategoryListing) []string {
	return []string{l.Title, l.Description, l.Departure, l.Arrival}
}

func dealFields(d domain.Deal) []string {
	return []string{d.Title, d.Description}
}
