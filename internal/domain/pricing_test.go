package domain

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		name    string
		sel     TravelerSelection
		base    float64
		lodging bool
		want    float64
	}{
		{"adults and child point to point", TravelerSelection{Adults: 2, Children: 1, Rooms: 1}, 2000, false, 5000},
		{"two rooms lodging", TravelerSelection{Adults: 2, Children: 0, Rooms: 2}, 2000, true, 8000},
		{"rooms ignored when not lodging", TravelerSelection{Adults: 2, Children: 0, Rooms: 3}, 2000, false, 4000},
		{"listed price", TravelerSelection{Adults: 1, Children: 2, Rooms: 1}, 3500, true, 7000},
		{"below floors clamped", TravelerSelection{Adults: 0, Children: -4, Rooms: 0}, 2000, true, 2000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Estimate(tc.sel, tc.base, tc.lodging); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBaseRate(t *testing.T) {
	if got := BaseRate(4999, 2000); got != 4999 {
		t.Errorf("listed price should win, got %v", got)
	}
	if got := BaseRate(0, 2500); got != 2500 {
		t.Errorf("expected configured fallback, got %v", got)
	}
	if got := BaseRate(0, 0); got != DefaultBaseRate {
		t.Errorf("expected default base rate, got %v", got)
	}
}

func TestIsLodging(t *testing.T) {
	for _, kind := range []string{"hotels", "Hotel", "holidays", "package", "destination"} {
		if !IsLodging(kind) {
			t.Errorf("%s should be lodging-like", kind)
		}
	}
	for _, kind := range []string{"flights", "trains", "buses", "cabs", ""} {
		if IsLodging(kind) {
			t.Errorf("%s should be point to point", kind)
		}
	}
}

func TestEstimateSearch(t *testing.T) {
	sel := TravelerSelection{Adults: 2, Children: 1, Rooms: 2}

	if _, ok := EstimateSearch(SearchCriteria{Category: "flights", Travelers: sel}, 2000); ok {
		t.Fatal("expected no estimate without criteria")
	}
	if _, ok := EstimateSearch(SearchCriteria{Category: "flights", From: "   ", Travelers: sel}, 2000); ok {
		t.Fatal("blank criteria should not produce an estimate")
	}

	if _, ok := EstimateSearch(SearchCriteria{Category: "flights", From: "DEL", Travelers: sel}, 2000); ok {
		t.Fatal("a flight needs both ends before it is estimated")
	}
	if _, ok := EstimateSearch(SearchCriteria{Category: "hotels", From: "DEL", Travelers: sel}, 2000); ok {
		t.Fatal("a hotel search needs a city")
	}
	if _, ok := EstimateSearch(SearchCriteria{Category: "holidays", City: "Goa", Travelers: sel}, 2000); ok {
		t.Fatal("a holiday search needs a destination")
	}

	tests := []struct {
		name     string
		criteria SearchCriteria
		want     float64
	}{
		{"flight", SearchCriteria{Category: "flights", From: "DEL", To: "BOM"}, 5000},
		{"hotel by city", SearchCriteria{Category: "hotels", City: "Goa"}, 10000},
		{"hotel from category page", SearchCriteria{Category: "hotels", To: "Goa"}, 10000},
		{"holiday ignores rooms", SearchCriteria{Category: "holidays", Destination: "Goa"}, 5000},
		{"train from one end", SearchCriteria{Category: "trains", To: "Pune"}, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.criteria.Travelers = sel
			got, ok := EstimateSearch(tt.criteria, 2000)
			if !ok || got != tt.want {
				t.Errorf("expected %v, got %v (ok=%v)", tt.want, got, ok)
			}
		})
	}

	got, ok := EstimateSearch(SearchCriteria{
		Category:    "holidays",
		Destination: "Goa",
		Travelers:   TravelerSelection{Adults: 1, Rooms: 2},
	}, 2000)
	if !ok || got != 2000 {
		t.Errorf("expected 2000 for a holiday with two rooms, got %v (ok=%v)", got, ok)
	}
}
