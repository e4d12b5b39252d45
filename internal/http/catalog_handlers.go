package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Catalog.Home(r.Context()))
}

func (h *Handlers) ListDestinations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Catalog.Destinations(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handlers) GetDestination(w http.ResponseWriter, r *http.Request) {
	d, err := h.state.Catalog.Destination(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) ListPackages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": append([]string{catalog.AllPackages}, catalog.PackageCategories...),
		"packages":   h.state.Catalog.Packages(r.Context(), q.Get("q"), q.Get("category")),
	})
}

func (h *Handlers) GetPackage(w http.ResponseWriter, r *http.Request) {
	p, err := h.state.Catalog.Package(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListCategory(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	items, err := h.state.Catalog.Category(r.Context(), typ, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     strings.ToLower(typ),
		"listings": items,
	})
}

func (h *Handlers) ListDeals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Catalog.Deals(r.Context(), r.URL.Query().Get("q")))
}

// Estimate prices a search before anything is selected. The estimate is null
// until a search criterion is entered.
func (h *Handlers) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := domain.TravelerSelection{
		Adults:   intParam(q.Get("adults"), domain.MinAdults),
		Children: intParam(q.Get("children"), domain.MinChildren),
		Rooms:    intParam(q.Get("rooms"), domain.MinRooms),
	}
	criteria := domain.SearchCriteria{
		Category:    q.Get("category"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		City:        q.Get("city"),
		Destination: q.Get("destination"),
		Travelers:   sel.Clamped(),
	}

	resp := map[string]interface{}{"estimate": nil}
	if total, ok := domain.EstimateSearch(criteria, h.state.Config.BaseRate); ok {
		resp["estimate"] = total
		resp["display"] = domain.FormatPrice(total, h.state.Config.Currency)
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
