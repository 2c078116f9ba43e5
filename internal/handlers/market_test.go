package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"coinvest/internal/engine/marketsim"
	"coinvest/internal/models"
)

func TestMarketTokens(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/market/tokens", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != len(marketsim.DefaultTokens()) {
		t.Fatalf("expected %d tokens, got %d", len(marketsim.DefaultTokens()), len(resp))
	}
}

func TestMarketTradesRequiresToken(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/market/trades", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestMarketTradesServesBuffer(t *testing.T) {
	storeCalled := false
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{
		listMarketTradesFn: func(context.Context, string, int) ([]models.Transaction, error) {
			storeCalled = true
			return nil, nil
		},
	}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{
		recentTradesFn: func(symbol string) []marketsim.Trade {
			if symbol != "BTC" {
				t.Fatalf("unexpected symbol %q", symbol)
			}
			return []marketsim.Trade{
				{ID: "t-1", Token: "BTC", Side: "buy", Amount: "0.00123456"},
			}
		},
	})

	rr := serveRoute(t, handler, http.MethodGet, "/market/trades?token=btc", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if storeCalled {
		t.Fatal("store should not be queried when the buffer has trades")
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0]["amount"] != "0.00123456" || resp[0]["side"] != "buy" {
		t.Fatalf("response = %v", resp)
	}
}

func TestMarketTradesFallsBackToStore(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{
		listMarketTradesFn: func(_ context.Context, token string, limit int) ([]models.Transaction, error) {
			if token != "ETH" {
				t.Fatalf("unexpected token %q", token)
			}
			if limit != marketTradeCap {
				t.Fatalf("limit = %d", limit)
			}
			return []models.Transaction{
				{ID: "t-2", Type: "trade_sell", Notes: "Market SELL 0.250000 ETH"},
			}, nil
		},
	}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/market/trades?token=ETH", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp))
	}
	if resp[0]["side"] != "sell" || resp[0]["amount"] != "0.250000" {
		t.Fatalf("response = %v", resp)
	}
}

func TestTradeAmountFromNote(t *testing.T) {
	if got := tradeAmountFromNote("Market BUY 0.00123456 BTC"); got != "0.00123456" {
		t.Fatalf("got %q", got)
	}
	if got := tradeAmountFromNote("garbled"); got != "" {
		t.Fatalf("got %q", got)
	}
}
