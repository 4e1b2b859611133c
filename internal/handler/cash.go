package handler

import (
	"net/http"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/response"
)

// CashBalance handles GET /api/v1/cash/balance
func (h *BillingHandler) CashBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.CurrentCashBalance(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, domain.CashBalanceResponse{Balance: balance})
}

// ListMovements handles GET /api/v1/cash/movements?limit=&offset=
func (h *BillingHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		response.BadRequest(w, "INVALID_QUERY", "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		response.BadRequest(w, "INVALID_QUERY", "offset must be an integer")
		return
	}

	movements, err := h.service.ListMovements(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, movements)
}

// RecordMovement handles POST /api/v1/cash/movements
func (h *BillingHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var request domain.RecordMovementRequest
	if !h.decode(w, r, &request) {
		return
	}

	movement, err := h.service.RecordMovement(r.Context(), &request, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, movement)
}
