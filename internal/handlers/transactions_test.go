package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"coinvest/internal/models"
	"coinvest/internal/services"
)

func TestListPlansReturnsActiveOnly(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{
		listActiveFn: func(context.Context) ([]models.InvestmentPlan, error) {
			return []models.InvestmentPlan{
				{ID: "plan-1", Name: "Starter", MinAmount: "10", DailyReturnRate: "0.0050", DurationDays: 30, IsActive: true},
			}, nil
		},
	}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/plans", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(resp))
	}
	if resp[0]["min_amount"] != "10.00000000" {
		t.Fatalf("min_amount = %v", resp[0]["min_amount"])
	}
	if resp[0]["daily_return_rate"] != "0.0050" {
		t.Fatalf("daily_return_rate = %v", resp[0]["daily_return_rate"])
	}
}

func TestGetPlanNotFound(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{
		getByIDFn: func(context.Context, string) (models.InvestmentPlan, error) {
			return models.InvestmentPlan{}, sql.ErrNoRows
		},
	}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/plans/plan-missing", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRequestInvestmentMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidAmount, http.StatusBadRequest},
		{services.ErrPlanNotFound, http.StatusNotFound},
		{services.ErrPlanNotActive, http.StatusBadRequest},
		{services.ErrBelowMinimum, http.StatusBadRequest},
		{services.ErrInsufficientFunds, http.StatusBadRequest},
	}
	for _, tc := range cases {
		handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{
			requestInvestmentFn: func(context.Context, string, string, string) (string, error) {
				return "", tc.err
			},
		}, stubMarketFeed{})
		rr := serveRoute(t, handler, http.MethodPost, "/investments", "user-1", `{"plan_id":"plan-1","amount":"60"}`)
		if rr.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rr.Code)
		}
	}
}

func TestRequestInvestmentSuccess(t *testing.T) {
	var gotUser, gotPlan, gotAmount string
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{
		requestInvestmentFn: func(_ context.Context, userID, planID, amount string) (string, error) {
			gotUser, gotPlan, gotAmount = userID, planID, amount
			return "txn-9", nil
		},
	}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/investments", "user-1", `{"plan_id":"plan-1","amount":"60"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if gotUser != "user-1" || gotPlan != "plan-1" || gotAmount != "60" {
		t.Fatalf("service called with user=%q plan=%q amount=%q", gotUser, gotPlan, gotAmount)
	}
	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["transaction_id"] != "txn-9" || resp["status"] != "pending" {
		t.Fatalf("response = %v", resp)
	}
}

func TestListInvestmentsOwnOnly(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{
		listByUserFn: func(_ context.Context, userID string) ([]models.Investment, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []models.Investment{
				{ID: "inv-1", PlanID: "plan-1", Amount: "60", CurrentProfit: "0.1", IsActive: true},
			}, nil
		},
	}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/investments", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0]["current_profit"] != "0.10000000" {
		t.Fatalf("response = %v", resp)
	}
}

func TestRequestDepositAndWithdrawal(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{
		requestWithdrawalFn: func(context.Context, string, string) (string, error) {
			return "", services.ErrInsufficientFunds
		},
	}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/transactions/deposit", "user-1", `{"amount":"25"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit: expected 201, got %d", rr.Code)
	}

	rr = serveRoute(t, handler, http.MethodPost, "/transactions/withdraw", "user-1", `{"amount":"9999"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("withdrawal: expected 400, got %d", rr.Code)
	}
}

func TestListTransactionsPassesFilter(t *testing.T) {
	var gotType string
	var gotLimit, gotOffset int
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{
		listByUserFn: func(_ context.Context, _ string, txType string, limit, offset int) ([]models.Transaction, error) {
			gotType = txType
			gotLimit = limit
			gotOffset = offset
			return nil, nil
		},
	}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/transactions?type=deposit&page=3&limit=10", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotType != "deposit" || gotLimit != 10 || gotOffset != 20 {
		t.Fatalf("filter type=%q limit=%d offset=%d", gotType, gotLimit, gotOffset)
	}
}
