package handlers

import (
	"encoding/json"
	"net/http"

	"coinvest/internal/middleware"
	"coinvest/internal/models"
	"coinvest/internal/services"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	transactionID, err := h.service.RequestDeposit(r.Context(), userID, req.Amount)
	if err != nil {
		if err == services.ErrInvalidAmount {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		respondError(w, http.StatusInternalServerError, "deposit_request_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID, "status": "pending"})
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	transactionID, err := h.service.RequestWithdrawal(r.Context(), userID, req.Amount)
	if err != nil {
		switch err {
		case services.ErrInvalidAmount:
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case services.ErrInsufficientFunds:
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		default:
			respondError(w, http.StatusInternalServerError, "withdrawal_request_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID, "status": "pending"})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	txType := query.Get("type")
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	transactions, err := h.transactions.ListByUser(r.Context(), userID, txType, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, normalizeTransactions(transactions))
}

func normalizeTransactions(transactions []models.Transaction) []map[string]any {
	normalized := make([]map[string]any, 0, len(transactions))
	for _, txn := range transactions {
		normalized = append(normalized, map[string]any{
			"id":         txn.ID,
			"user_id":    txn.UserID,
			"type":       txn.Type,
			"status":     txn.Status,
			"amount":     valueToMoney(txn.Amount),
			"notes":      txn.Notes,
			"created_at": txn.CreatedAt,
		})
	}
	return normalized
}
