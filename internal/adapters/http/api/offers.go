package api

import (
	"net/http"

	service "github.com/okian/squadmarket/internal/app"
	"github.com/okian/squadmarket/internal/domain/search"
)

// OffersHandler handles listing creation and search.
type OffersHandler struct {
	deps Dependencies
}

// NewOffersHandler creates a new offers handler.
func NewOffersHandler(deps Dependencies) *OffersHandler {
	return &OffersHandler{deps: deps}
}

// HandleCreateOffer handles POST /offers.
func (h *OffersHandler) HandleCreateOffer(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req service.CreateOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.deps.CreateOffer(r.Context(), principal, req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleSearchOffers handles GET /offers.
func (h *OffersHandler) HandleSearchOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.deps.SearchOffers(r.Context(), search.Params{
		Country:        q.Get("country"),
		Position:       q.Get("position"),
		OrderBy:        q.Get("orderBy"),
		OrderDirection: q.Get("orderDirection"),
		PageSize:       q.Get("pageSize"),
		Cursor:         q.Get("cursor"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
