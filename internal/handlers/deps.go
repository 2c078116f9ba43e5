package handlers

import (
	"context"

	"coinvest/internal/engine/marketsim"
	"coinvest/internal/models"
	"coinvest/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	SetCurrentPlan(ctx context.Context, tx store.Execer, userID string, planID *string) error
}

type PlanStore interface {
	Create(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error
	Update(ctx context.Context, tx store.Execer, planID, minAmount, dailyReturnRate string, isActive bool) error
	GetByID(ctx context.Context, planID string) (models.InvestmentPlan, error)
	ListActive(ctx context.Context) ([]models.InvestmentPlan, error)
	ListAll(ctx context.Context) ([]models.InvestmentPlan, error)
}

type InvestmentStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.Investment, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Transaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error)
	ListMarketTrades(ctx context.Context, token string, limit int) ([]models.Transaction, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (int64, error)
}

type AccrualRunStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type InvestmentService interface {
	RequestDeposit(ctx context.Context, userID, amount string) (string, error)
	RequestWithdrawal(ctx context.Context, userID, amount string) (string, error)
	RequestInvestment(ctx context.Context, userID, planID, amount string) (string, error)
	Confirm(ctx context.Context, adminID, transactionID string) error
	Reject(ctx context.Context, adminID, transactionID string) error
	AdjustBalance(ctx context.Context, adminID, userID, balance string) error
}

type MarketFeed interface {
	Tokens() []marketsim.Token
	RecentTrades(symbol string) []marketsim.Trade
}
