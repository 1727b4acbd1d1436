package api

import (
	"net/http"

	service "github.com/okian/squadmarket/internal/app"
)

// IdempotencyHeader carries the caller's key for a purchase.
const IdempotencyHeader = "Idempotency-Key"

// PurchaseHandler handles player purchases.
type PurchaseHandler struct {
	deps Dependencies
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(deps Dependencies) *PurchaseHandler {
	return &PurchaseHandler{deps: deps}
}

// HandlePurchase handles POST /purchases.
func (h *PurchaseHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req service.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	if err := h.deps.PurchasePlayer(r.Context(), principal, req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
