package handlers

import (
	"net/http"
	"strings"
)

const marketTradeCap = 40

func (h *Handler) MarketTokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.market.Tokens()
	normalized := make([]map[string]any, 0, len(tokens))
	for _, token := range tokens {
		normalized = append(normalized, map[string]any{
			"symbol":     token.Symbol,
			"min_amount": token.MinAmount,
			"max_amount": token.MaxAmount,
			"precision":  token.Precision,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

// MarketTrades serves the in-memory trade buffer for a token and falls back
// to the transaction table when the buffer is empty, e.g. right after boot.
func (h *Handler) MarketTrades(w http.ResponseWriter, r *http.Request) {
	token := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("token")))
	if token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}
	trades := h.market.RecentTrades(token)
	if len(trades) > 0 {
		if len(trades) > marketTradeCap {
			trades = trades[:marketTradeCap]
		}
		normalized := make([]map[string]any, 0, len(trades))
		for _, trade := range trades {
			normalized = append(normalized, map[string]any{
				"id":         trade.ID,
				"token":      trade.Token,
				"side":       trade.Side,
				"amount":     trade.Amount,
				"created_at": trade.CreatedAt,
			})
		}
		respondJSON(w, http.StatusOK, normalized)
		return
	}
	rows, err := h.transactions.ListMarketTrades(r.Context(), token, marketTradeCap)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load trades")
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		side := "buy"
		if row.Type == "trade_sell" {
			side = "sell"
		}
		normalized = append(normalized, map[string]any{
			"id":         row.ID,
			"token":      token,
			"side":       side,
			"amount":     tradeAmountFromNote(row.Notes),
			"created_at": row.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

// tradeAmountFromNote extracts the quoted amount from a market note such
// as "Market BUY 0.00123456 BTC".
func tradeAmountFromNote(note string) string {
	parts := strings.Fields(note)
	if len(parts) != 4 {
		return ""
	}
	return parts[2]
}
