package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coinvest/internal/auth"
	"coinvest/internal/config"
	"coinvest/internal/engine/marketsim"
	"coinvest/internal/models"
	"coinvest/internal/store"
	"coinvest/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn         func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn     func(ctx context.Context, email string) (models.User, error)
	getByUsernameFn  func(ctx context.Context, username string) (models.User, error)
	getByIDFn        func(ctx context.Context, userID string) (models.User, error)
	listAllFn        func(ctx context.Context) ([]models.User, error)
	setCurrentPlanFn func(ctx context.Context, tx store.Execer, userID string, planID *string) error
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) ListAll(ctx context.Context) ([]models.User, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx)
}

func (s stubUserStore) SetCurrentPlan(ctx context.Context, tx store.Execer, userID string, planID *string) error {
	if s.setCurrentPlanFn == nil {
		return nil
	}
	return s.setCurrentPlanFn(ctx, tx, userID, planID)
}

type stubPlanStore struct {
	createFn     func(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error
	updateFn     func(ctx context.Context, tx store.Execer, planID, minAmount, dailyReturnRate string, isActive bool) error
	getByIDFn    func(ctx context.Context, planID string) (models.InvestmentPlan, error)
	listActiveFn func(ctx context.Context) ([]models.InvestmentPlan, error)
	listAllFn    func(ctx context.Context) ([]models.InvestmentPlan, error)
}

func (s stubPlanStore) Create(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, plan)
}

func (s stubPlanStore) Update(ctx context.Context, tx store.Execer, planID, minAmount, dailyReturnRate string, isActive bool) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, planID, minAmount, dailyReturnRate, isActive)
}

func (s stubPlanStore) GetByID(ctx context.Context, planID string) (models.InvestmentPlan, error) {
	if s.getByIDFn == nil {
		return models.InvestmentPlan{}, nil
	}
	return s.getByIDFn(ctx, planID)
}

func (s stubPlanStore) ListActive(ctx context.Context) ([]models.InvestmentPlan, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx)
}

func (s stubPlanStore) ListAll(ctx context.Context) ([]models.InvestmentPlan, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx)
}

type stubInvestmentStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]models.Investment, error)
}

func (s stubInvestmentStore) ListByUser(ctx context.Context, userID string) ([]models.Investment, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubTransactionStore struct {
	listByUserFn       func(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	listByStatusFn     func(ctx context.Context, status string, limit, offset int) ([]models.Transaction, error)
	listAllFn          func(ctx context.Context, limit, offset int) ([]models.Transaction, error)
	listMarketTradesFn func(ctx context.Context, token string, limit int) ([]models.Transaction, error)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, txType, limit, offset)
}

func (s stubTransactionStore) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Transaction, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit, offset)
}

func (s stubTransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

func (s stubTransactionStore) ListMarketTrades(ctx context.Context, token string, limit int) ([]models.Transaction, error) {
	if s.listMarketTradesFn == nil {
		return nil, nil
	}
	return s.listMarketTradesFn(ctx, token, limit)
}

type stubNotificationStore struct {
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
	markReadFn   func(ctx context.Context, userID, notificationID string) (int64, error)
}

func (s stubNotificationStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubNotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (int64, error) {
	if s.markReadFn == nil {
		return 1, nil
	}
	return s.markReadFn(ctx, userID, notificationID)
}

type stubAccrualRunStore struct {
	listRecentFn func(ctx context.Context, limit int) ([]models.AccrualRun, error)
}

func (s stubAccrualRunStore) ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error) {
	if s.listRecentFn == nil {
		return nil, nil
	}
	return s.listRecentFn(ctx, limit)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn     func(ctx context.Context, userID, role string) (bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdminFn func(ctx context.Context, tx store.Getter) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return false, nil
	}
	return s.hasAnyAdminFn(ctx, tx)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubService struct {
	requestDepositFn    func(ctx context.Context, userID, amount string) (string, error)
	requestWithdrawalFn func(ctx context.Context, userID, amount string) (string, error)
	requestInvestmentFn func(ctx context.Context, userID, planID, amount string) (string, error)
	confirmFn           func(ctx context.Context, adminID, transactionID string) error
	rejectFn            func(ctx context.Context, adminID, transactionID string) error
	adjustBalanceFn     func(ctx context.Context, adminID, userID, balance string) error
}

func (s stubService) RequestDeposit(ctx context.Context, userID, amount string) (string, error) {
	if s.requestDepositFn == nil {
		return "txn-1", nil
	}
	return s.requestDepositFn(ctx, userID, amount)
}

func (s stubService) RequestWithdrawal(ctx context.Context, userID, amount string) (string, error) {
	if s.requestWithdrawalFn == nil {
		return "txn-1", nil
	}
	return s.requestWithdrawalFn(ctx, userID, amount)
}

func (s stubService) RequestInvestment(ctx context.Context, userID, planID, amount string) (string, error) {
	if s.requestInvestmentFn == nil {
		return "txn-1", nil
	}
	return s.requestInvestmentFn(ctx, userID, planID, amount)
}

func (s stubService) Confirm(ctx context.Context, adminID, transactionID string) error {
	if s.confirmFn == nil {
		return nil
	}
	return s.confirmFn(ctx, adminID, transactionID)
}

func (s stubService) Reject(ctx context.Context, adminID, transactionID string) error {
	if s.rejectFn == nil {
		return nil
	}
	return s.rejectFn(ctx, adminID, transactionID)
}

func (s stubService) AdjustBalance(ctx context.Context, adminID, userID, balance string) error {
	if s.adjustBalanceFn == nil {
		return nil
	}
	return s.adjustBalanceFn(ctx, adminID, userID, balance)
}

type stubMarketFeed struct {
	tokensFn       func() []marketsim.Token
	recentTradesFn func(symbol string) []marketsim.Trade
}

func (s stubMarketFeed) Tokens() []marketsim.Token {
	if s.tokensFn == nil {
		return marketsim.DefaultTokens()
	}
	return s.tokensFn()
}

func (s stubMarketFeed) RecentTrades(symbol string) []marketsim.Trade {
	if s.recentTradesFn == nil {
		return nil
	}
	return s.recentTradesFn(symbol)
}

func newTestHandler(txRunner fakeTxRunner, users stubUserStore, plans stubPlanStore, investments stubInvestmentStore, transactions stubTransactionStore, notifications stubNotificationStore, accrualRuns stubAccrualRunStore, admin stubAdminStore, audit stubAuditStore, service stubService, market stubMarketFeed) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
	return New(txRunner, cfg, users, plans, investments, transactions, notifications, accrualRuns, admin, audit, service, market, websocket.NewHub())
}

func serveRoute(t *testing.T, h *Handler, method, target, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
