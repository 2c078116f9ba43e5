package handlers

import (
	"encoding/json"
	"net/http"

	"coinvest/internal/middleware"
	"coinvest/internal/services"
)

type investmentRequest struct {
	PlanID string `json:"plan_id"`
	Amount string `json:"amount"`
}

func (h *Handler) RequestInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.PlanID == "" {
		respondError(w, http.StatusBadRequest, "plan_id is required")
		return
	}
	transactionID, err := h.service.RequestInvestment(r.Context(), userID, req.PlanID, req.Amount)
	if err != nil {
		switch err {
		case services.ErrInvalidAmount:
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case services.ErrPlanNotFound:
			respondError(w, http.StatusNotFound, "plan_not_found")
		case services.ErrPlanNotActive:
			respondError(w, http.StatusBadRequest, "plan_not_active")
		case services.ErrBelowMinimum:
			respondError(w, http.StatusBadRequest, "amount_below_minimum")
		case services.ErrInsufficientFunds:
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		default:
			respondError(w, http.StatusInternalServerError, "investment_request_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID, "status": "pending"})
}

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	investments, err := h.investments.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load investments")
		return
	}
	normalized := make([]map[string]any, 0, len(investments))
	for _, inv := range investments {
		normalized = append(normalized, map[string]any{
			"id":             inv.ID,
			"plan_id":        inv.PlanID,
			"amount":         valueToMoney(inv.Amount),
			"current_profit": valueToMoney(inv.CurrentProfit),
			"start_date":     inv.StartDate,
			"end_date":       inv.EndDate,
			"is_active":      inv.IsActive,
			"created_at":     inv.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}
