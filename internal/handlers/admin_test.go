package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"coinvest/internal/models"
	"coinvest/internal/services"
	"coinvest/internal/store"
)

func superAdminStore() stubAdminStore {
	return stubAdminStore{
		isAdminFn: func(context.Context, string) (bool, bool, error) {
			return true, true, nil
		},
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{
		isAdminFn: func(context.Context, string) (bool, bool, error) {
			return false, false, nil
		},
	}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/admin/users", "user-1", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestAdminListUsers(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{
		listAllFn: func(context.Context) ([]models.User, error) {
			return []models.User{
				{ID: "user-1", Username: "alice", Balance: "3.5", CurrentPlanID: stringPtr("plan-1")},
			}, nil
		},
	}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/admin/users", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0]["balance"] != "3.50000000" {
		t.Fatalf("response = %v", resp)
	}
}

func TestAdminAdjustBalance(t *testing.T) {
	var gotAdmin, gotUser, gotBalance string
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{
		adjustBalanceFn: func(_ context.Context, adminID, userID, balance string) error {
			gotAdmin, gotUser, gotBalance = adminID, userID, balance
			return nil
		},
	}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/admin/users/user-7/balance", "admin-1", `{"balance":"250"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotAdmin != "admin-1" || gotUser != "user-7" || gotBalance != "250" {
		t.Fatalf("service called with admin=%q user=%q balance=%q", gotAdmin, gotUser, gotBalance)
	}
}

func TestAdminSetUserPlanValidatesPlan(t *testing.T) {
	inactive := models.InvestmentPlan{ID: "plan-retired", IsActive: false}
	setCalls := 0
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{
		setCurrentPlanFn: func(context.Context, store.Execer, string, *string) error {
			setCalls++
			return nil
		},
	}, stubPlanStore{
		getByIDFn: func(_ context.Context, planID string) (models.InvestmentPlan, error) {
			if planID == "plan-retired" {
				return inactive, nil
			}
			return models.InvestmentPlan{ID: planID, IsActive: true}, nil
		},
	}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/admin/users/user-7/plan", "admin-1", `{"plan_id":"plan-retired"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inactive plan: expected 400, got %d", rr.Code)
	}
	if setCalls != 0 {
		t.Fatalf("plan assigned despite inactive plan")
	}

	rr = serveRoute(t, handler, http.MethodPost, "/admin/users/user-7/plan", "admin-1", `{"plan_id":"plan-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("active plan: expected 200, got %d", rr.Code)
	}

	// Clearing the plan skips the plan lookup entirely.
	rr = serveRoute(t, handler, http.MethodPost, "/admin/users/user-7/plan", "admin-1", `{"plan_id":null}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear plan: expected 200, got %d", rr.Code)
	}
	if setCalls != 2 {
		t.Fatalf("setCalls = %d", setCalls)
	}
}

func TestAdminCreatePlanValidation(t *testing.T) {
	var created models.InvestmentPlan
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{
		createFn: func(_ context.Context, _ store.Execer, plan models.InvestmentPlan) error {
			created = plan
			return nil
		},
	}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	for _, body := range []string{
		`{"name":"!","min_amount":"50","daily_return_rate":"0.008","duration_days":30}`,
		`{"name":"Premium","min_amount":"-1","daily_return_rate":"0.008","duration_days":30}`,
		`{"name":"Premium","min_amount":"50","daily_return_rate":"1.5","duration_days":30}`,
		`{"name":"Premium","min_amount":"50","daily_return_rate":"0.008","duration_days":0}`,
	} {
		rr := serveRoute(t, handler, http.MethodPost, "/admin/plans", "admin-1", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rr.Code)
		}
	}

	rr := serveRoute(t, handler, http.MethodPost, "/admin/plans", "admin-1", `{"name":"Premium","min_amount":"50","daily_return_rate":"0.008","duration_days":30}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if created.Name != "Premium" || created.MinAmount != "50.00000000" || created.DurationDays != 30 {
		t.Fatalf("created plan = %+v", created)
	}
	if !created.IsActive {
		t.Fatal("plan should default to active")
	}
}

func TestAdminUpdatePlan(t *testing.T) {
	var gotMin, gotRate string
	var gotActive bool
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{
		getByIDFn: func(_ context.Context, planID string) (models.InvestmentPlan, error) {
			return models.InvestmentPlan{ID: planID, IsActive: true}, nil
		},
		updateFn: func(_ context.Context, _ store.Execer, _, minAmount, rate string, isActive bool) error {
			gotMin, gotRate, gotActive = minAmount, rate, isActive
			return nil
		},
	}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPut, "/admin/plans/plan-1", "admin-1", `{"min_amount":"75","daily_return_rate":"0.01","is_active":false,"duration_days":99}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotMin != "75.00000000" || gotRate != "0.01" || gotActive {
		t.Fatalf("update min=%q rate=%q active=%v", gotMin, gotRate, gotActive)
	}
}

func TestAdminListTransactionsStatusFilter(t *testing.T) {
	var gotStatus string
	listAllCalls := 0
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{
		listByStatusFn: func(_ context.Context, status string, _, _ int) ([]models.Transaction, error) {
			gotStatus = status
			return nil, nil
		},
		listAllFn: func(context.Context, int, int) ([]models.Transaction, error) {
			listAllCalls++
			return nil, nil
		},
	}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/admin/transactions?status=pending", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotStatus != "pending" || listAllCalls != 0 {
		t.Fatalf("status=%q listAllCalls=%d", gotStatus, listAllCalls)
	}

	rr = serveRoute(t, handler, http.MethodGet, "/admin/transactions", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if listAllCalls != 1 {
		t.Fatalf("listAllCalls = %d", listAllCalls)
	}
}

func TestAdminConfirmAndRejectTransaction(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, superAdminStore(), stubAuditStore{}, stubService{
		confirmFn: func(_ context.Context, _, transactionID string) error {
			if transactionID == "txn-done" {
				return services.ErrTransactionNotPending
			}
			return nil
		},
	}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/admin/transactions/txn-1/confirm", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", rr.Code)
	}

	rr = serveRoute(t, handler, http.MethodPost, "/admin/transactions/txn-done/confirm", "admin-1", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("confirm non-pending: expected 409, got %d", rr.Code)
	}

	rr = serveRoute(t, handler, http.MethodPost, "/admin/transactions/txn-1/reject", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", rr.Code)
	}
}

func TestAdminListAccrualRuns(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{
		listRecentFn: func(_ context.Context, limit int) ([]models.AccrualRun, error) {
			if limit != 10 {
				t.Fatalf("limit = %d", limit)
			}
			return []models.AccrualRun{{ID: "run-1", InvestmentsCredited: 4, TotalCredited: "0.00012345"}}, nil
		},
	}, superAdminStore(), stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/admin/accrual-runs?limit=10", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []models.AccrualRun
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0].TotalCredited != "0.00012345" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestPromoteAdminRequiresSuper(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{
		isAdminFn: func(context.Context, string) (bool, bool, error) {
			return true, false, nil
		},
	}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/admin/promote", "admin-1", `{"identifier":"alice"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestWSBalancesMissingToken(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/ws/balances", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
