package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"coinvest/internal/db"
	"coinvest/internal/models"
	"coinvest/internal/money"
	"coinvest/internal/store"
	"coinvest/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrPlanNotFound          = errors.New("plan not found")
	ErrPlanNotActive         = errors.New("plan not active")
	ErrBelowMinimum          = errors.New("amount below plan minimum")
	ErrTransactionNotPending = errors.New("transaction is not pending")
	ErrUnsupportedType       = errors.New("unsupported transaction type")
)

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID, balance string) error
}

type PlanStore interface {
	GetByID(ctx context.Context, planID string) (models.InvestmentPlan, error)
}

type InvestmentStore interface {
	Create(ctx context.Context, tx store.Execer, inv models.Investment) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetForUpdate(ctx context.Context, tx store.Getter, transactionID string) (models.Transaction, error)
	UpdateStatus(ctx context.Context, tx store.Execer, transactionID, status string) error
}

type NotificationStore interface {
	Create(ctx context.Context, input store.NotificationInput) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// InvestmentService owns the pending-transaction state machine: users file
// deposit/withdrawal/investment requests, an admin confirms or rejects them,
// and confirmation is the only path that moves a balance.
type InvestmentService struct {
	txRunner      db.TxRunner
	users         UserStore
	plans         PlanStore
	investments   InvestmentStore
	transactions  TransactionStore
	notifications NotificationStore
	audit         AuditStore
	hub           BalanceHub
}

func NewInvestmentService(txRunner db.TxRunner, users UserStore, plans PlanStore, investments InvestmentStore, transactions TransactionStore, notifications NotificationStore, audit AuditStore, hub BalanceHub) *InvestmentService {
	return &InvestmentService{
		txRunner:      txRunner,
		users:         users,
		plans:         plans,
		investments:   investments,
		transactions:  transactions,
		notifications: notifications,
		audit:         audit,
		hub:           hub,
	}
}

func (s *InvestmentService) RequestDeposit(ctx context.Context, userID, amount string) (string, error) {
	parsed, err := money.ParsePositive(amount)
	if err != nil {
		return "", ErrInvalidAmount
	}
	return s.createPending(ctx, userID, "deposit", parsed, "")
}

func (s *InvestmentService) RequestWithdrawal(ctx context.Context, userID, amount string) (string, error) {
	parsed, err := money.ParsePositive(amount)
	if err != nil {
		return "", ErrInvalidAmount
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if money.ValueToDecimal(user.Balance).LessThan(parsed) {
		return "", ErrInsufficientFunds
	}
	return s.createPending(ctx, userID, "withdrawal", parsed, "")
}

func (s *InvestmentService) RequestInvestment(ctx context.Context, userID, planID, amount string) (string, error) {
	parsed, err := money.ParsePositive(amount)
	if err != nil {
		return "", ErrInvalidAmount
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return "", ErrPlanNotFound
	}
	if !plan.IsActive {
		return "", ErrPlanNotActive
	}
	if parsed.LessThan(money.ValueToDecimal(plan.MinAmount)) {
		return "", ErrBelowMinimum
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if money.ValueToDecimal(user.Balance).LessThan(parsed) {
		return "", ErrInsufficientFunds
	}
	notes, _ := json.Marshal(map[string]string{"plan_id": planID})
	return s.createPending(ctx, userID, "investment", parsed, string(notes))
}

func (s *InvestmentService) createPending(ctx context.Context, userID, txType string, amount decimal.Decimal, notes string) (string, error) {
	transactionID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:     transactionID,
			UserID: userID,
			Type:   txType,
			Status: "pending",
			Amount: money.Format(amount),
			Notes:  notes,
		})
	})
	if err != nil {
		return "", err
	}
	return transactionID, nil
}

// Confirm moves a pending transaction to confirmed and applies its balance
// effect atomically. Confirmed and rejected are terminal.
func (s *InvestmentService) Confirm(ctx context.Context, adminID, transactionID string) error {
	var userID string
	var balanceAfter string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		txn, err := s.transactions.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != "pending" {
			return ErrTransactionNotPending
		}
		user, err := s.users.GetForUpdate(ctx, tx, txn.UserID)
		if err != nil {
			return err
		}
		userID = user.ID
		amount := money.ValueToDecimal(txn.Amount)
		balance := money.ValueToDecimal(user.Balance)

		switch txn.Type {
		case "deposit":
			balanceAfter = money.Format(balance.Add(amount))
		case "withdrawal":
			if balance.LessThan(amount) {
				return ErrInsufficientFunds
			}
			balanceAfter = money.Format(balance.Sub(amount))
		case "investment":
			if balance.LessThan(amount) {
				return ErrInsufficientFunds
			}
			plan, err := s.planFromNotes(ctx, txn)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if err := s.investments.Create(ctx, tx, models.Investment{
				ID:            uuid.NewString(),
				UserID:        user.ID,
				PlanID:        plan.ID,
				Amount:        money.Format(amount),
				CurrentProfit: money.Format(decimal.Zero),
				StartDate:     now,
				EndDate:       now.AddDate(0, 0, plan.DurationDays),
				IsActive:      true,
			}); err != nil {
				return err
			}
			balanceAfter = money.Format(balance.Sub(amount))
		default:
			return ErrUnsupportedType
		}

		if err := s.users.UpdateBalance(ctx, tx, user.ID, balanceAfter); err != nil {
			return err
		}
		if err := s.transactions.UpdateStatus(ctx, tx, transactionID, "confirmed"); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"transaction_id": transactionID, "type": txn.Type})
		return s.audit.Log(ctx, tx, adminID, "confirm_transaction", "transaction", transactionID, string(data))
	})
	if err != nil {
		return err
	}
	s.notify(ctx, userID, "Transaction confirmed", "Your transaction has been confirmed")
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{Balance: balanceAfter, Reason: "transaction"})
	return nil
}

func (s *InvestmentService) Reject(ctx context.Context, adminID, transactionID string) error {
	var userID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		txn, err := s.transactions.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != "pending" {
			return ErrTransactionNotPending
		}
		userID = txn.UserID
		if err := s.transactions.UpdateStatus(ctx, tx, transactionID, "rejected"); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"transaction_id": transactionID, "type": txn.Type})
		return s.audit.Log(ctx, tx, adminID, "reject_transaction", "transaction", transactionID, string(data))
	})
	if err != nil {
		return err
	}
	s.notify(ctx, userID, "Transaction rejected", "Your transaction has been rejected")
	return nil
}

// AdjustBalance is the admin override for a user's ledger balance. It is not
// serialized against the accrual engine; last write wins.
func (s *InvestmentService) AdjustBalance(ctx context.Context, adminID, userID, balance string) error {
	parsed, err := money.Parse(balance)
	if err != nil || parsed.IsNegative() {
		return ErrInvalidAmount
	}
	formatted := money.Format(parsed)
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.users.GetForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.users.UpdateBalance(ctx, tx, userID, formatted); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"user_id": userID, "balance": formatted})
		return s.audit.Log(ctx, tx, adminID, "adjust_balance", "user", userID, string(data))
	})
	if err != nil {
		return err
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{Balance: formatted, Reason: "admin"})
	return nil
}

func (s *InvestmentService) planFromNotes(ctx context.Context, txn models.Transaction) (models.InvestmentPlan, error) {
	var meta struct {
		PlanID string `json:"plan_id"`
	}
	if err := json.Unmarshal([]byte(txn.Notes), &meta); err != nil || meta.PlanID == "" {
		return models.InvestmentPlan{}, ErrPlanNotFound
	}
	plan, err := s.plans.GetByID(ctx, meta.PlanID)
	if err != nil {
		return models.InvestmentPlan{}, ErrPlanNotFound
	}
	if !plan.IsActive {
		return models.InvestmentPlan{}, ErrPlanNotActive
	}
	return plan, nil
}

func (s *InvestmentService) notify(ctx context.Context, userID, title, message string) {
	if userID == "" {
		return
	}
	_ = s.notifications.Create(ctx, store.NotificationInput{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    "info",
	})
}
