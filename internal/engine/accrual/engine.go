// Package accrual hosts the background engine that distributes plan profit
// to balances on a fixed interval.
package accrual

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"coinvest/internal/models"
	"coinvest/internal/money"
	"coinvest/internal/store"
	"coinvest/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvestmentStore interface {
	ListActive(ctx context.Context) ([]models.Investment, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	UpdateProfit(ctx context.Context, tx store.Execer, investmentID, currentProfit string) error
}

type PlanStore interface {
	GetByID(ctx context.Context, planID string) (models.InvestmentPlan, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	ListWithPlan(ctx context.Context) ([]models.User, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID, balance string) error
}

type NotificationStore interface {
	Create(ctx context.Context, input store.NotificationInput) error
}

type RunStore interface {
	Record(ctx context.Context, input store.AccrualRunInput) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// TickResult summarizes one accrual pass for the monitoring channel.
type TickResult struct {
	StartedAt           time.Time
	FinishedAt          time.Time
	InvestmentsCredited int
	InvestmentsSkipped  int
	UsersCredited       int
	Failures            int
	TotalCredited       decimal.Decimal
}

// Engine credits plan profit on a fixed wall-clock interval. Each tick
// applies one interval's worth of the daily rate; there is no elapsed-time
// proration, so two immediate ticks credit twice.
type Engine struct {
	exec          store.Execer
	investments   InvestmentStore
	plans         PlanStore
	users         UserStore
	notifications NotificationStore
	runs          RunStore
	hub           BalanceHub

	interval        time.Duration
	intervalsPerDay decimal.Decimal
	results         chan TickResult

	tickMu  sync.Mutex
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func New(exec store.Execer, investments InvestmentStore, plans PlanStore, users UserStore, notifications NotificationStore, runs RunStore, hub BalanceHub, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	intervals := int64(24 * time.Hour / interval)
	if intervals < 1 {
		intervals = 1
	}
	return &Engine{
		exec:            exec,
		investments:     investments,
		plans:           plans,
		users:           users,
		notifications:   notifications,
		runs:            runs,
		hub:             hub,
		interval:        interval,
		intervalsPerDay: decimal.NewFromInt(intervals),
		results:         make(chan TickResult, 16),
	}
}

// Results exposes per-tick summaries. Sends are non-blocking; a slow
// consumer loses ticks, never stalls the engine.
func (e *Engine) Results() <-chan TickResult {
	return e.results
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				e.runTick(runCtx)
			}
		}
	}()

	log.Printf("accrual engine started, interval %s (%s intervals/day)", e.interval, e.intervalsPerDay)
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("accrual engine stopped")
	return nil
}

// runTick serializes tick execution: if a previous tick is still running
// against a slow store, the new one is dropped rather than double-credited.
func (e *Engine) runTick(ctx context.Context) {
	if !e.tickMu.TryLock() {
		log.Printf("accrual tick skipped: previous tick still running")
		return
	}
	defer e.tickMu.Unlock()

	result := e.Tick(ctx)
	if e.runs != nil {
		if err := e.runs.Record(ctx, store.AccrualRunInput{
			ID:                  uuid.NewString(),
			StartedAt:           result.StartedAt,
			FinishedAt:          result.FinishedAt,
			InvestmentsCredited: result.InvestmentsCredited,
			InvestmentsSkipped:  result.InvestmentsSkipped,
			UsersCredited:       result.UsersCredited,
			Failures:            result.Failures,
			TotalCredited:       money.Format(result.TotalCredited),
		}); err != nil {
			log.Printf("accrual run record failed: %v", err)
		}
	}
	select {
	case e.results <- result:
	default:
	}
}

// Tick performs one full accrual pass: per-investment profit first, then the
// fallback self-compounding pass for plan-holding users without an active
// investment. Per-entity failures are logged and counted, never fatal.
func (e *Engine) Tick(ctx context.Context) TickResult {
	result := TickResult{StartedAt: time.Now(), TotalCredited: decimal.Zero}
	e.accrueInvestments(ctx, &result)
	e.accrueFallbackUsers(ctx, &result)
	result.FinishedAt = time.Now()
	log.Printf("accrual tick: %d investments credited, %d skipped, %d users credited, %d failures, %s total",
		result.InvestmentsCredited, result.InvestmentsSkipped, result.UsersCredited, result.Failures,
		money.Format(result.TotalCredited))
	return result
}

func (e *Engine) accrueInvestments(ctx context.Context, result *TickResult) {
	investments, err := e.investments.ListActive(ctx)
	if err != nil {
		log.Printf("accrual: list active investments failed: %v", err)
		result.Failures++
		return
	}
	for _, inv := range investments {
		plan, err := e.plans.GetByID(ctx, inv.PlanID)
		if err != nil {
			if err == sql.ErrNoRows {
				log.Printf("accrual: investment %s references missing plan %s, skipping", inv.ID, inv.PlanID)
				result.InvestmentsSkipped++
				continue
			}
			log.Printf("accrual: plan lookup for investment %s failed: %v", inv.ID, err)
			result.Failures++
			continue
		}
		if !plan.IsActive {
			result.InvestmentsSkipped++
			continue
		}
		principal, err := money.Parse(inv.Amount)
		if err != nil {
			log.Printf("accrual: investment %s has bad principal %q: %v", inv.ID, inv.Amount, err)
			result.Failures++
			continue
		}
		profit := e.intervalProfit(plan, principal)
		if !profit.IsPositive() {
			result.InvestmentsSkipped++
			continue
		}
		currentProfit := money.ValueToDecimal(inv.CurrentProfit)
		if err := e.investments.UpdateProfit(ctx, e.exec, inv.ID, money.Format(currentProfit.Add(profit))); err != nil {
			log.Printf("accrual: update profit for investment %s failed: %v", inv.ID, err)
			result.Failures++
			continue
		}
		if err := e.creditUser(ctx, inv.UserID, profit, fmt.Sprintf("Earned %s from your %s investment", money.Format(profit), plan.Name)); err != nil {
			log.Printf("accrual: credit user %s for investment %s failed: %v", inv.UserID, inv.ID, err)
			result.Failures++
			continue
		}
		result.InvestmentsCredited++
		result.TotalCredited = result.TotalCredited.Add(profit)
	}
}

func (e *Engine) accrueFallbackUsers(ctx context.Context, result *TickResult) {
	users, err := e.users.ListWithPlan(ctx)
	if err != nil {
		log.Printf("accrual: list plan-holding users failed: %v", err)
		result.Failures++
		return
	}
	for _, user := range users {
		if user.CurrentPlanID == nil {
			continue
		}
		active, err := e.investments.CountActiveByUser(ctx, user.ID)
		if err != nil {
			log.Printf("accrual: count investments for user %s failed: %v", user.ID, err)
			result.Failures++
			continue
		}
		if active > 0 {
			// Already covered by the per-investment pass.
			continue
		}
		balance, err := money.Parse(user.Balance)
		if err != nil {
			log.Printf("accrual: parse balance for user %s failed: %v", user.ID, err)
			result.Failures++
			continue
		}
		if !balance.IsPositive() {
			continue
		}
		plan, err := e.plans.GetByID(ctx, *user.CurrentPlanID)
		if err != nil {
			if err == sql.ErrNoRows {
				log.Printf("accrual: user %s references missing plan %s, skipping", user.ID, *user.CurrentPlanID)
				continue
			}
			log.Printf("accrual: plan lookup for user %s failed: %v", user.ID, err)
			result.Failures++
			continue
		}
		if !plan.IsActive {
			continue
		}
		profit := e.intervalProfit(plan, balance)
		if !profit.IsPositive() {
			continue
		}
		newBalance := balance.Add(profit)
		if err := e.users.UpdateBalance(ctx, e.exec, user.ID, money.Format(newBalance)); err != nil {
			log.Printf("accrual: update balance for user %s failed: %v", user.ID, err)
			result.Failures++
			continue
		}
		e.notify(ctx, user.ID, fmt.Sprintf("Earned %s from your %s plan balance", money.Format(profit), plan.Name))
		e.broadcast(user.ID, money.Format(newBalance))
		result.UsersCredited++
		result.TotalCredited = result.TotalCredited.Add(profit)
	}
}

// intervalProfit applies one interval's share of the plan's daily rate,
// rounded to the storage scale.
func (e *Engine) intervalProfit(plan models.InvestmentPlan, base decimal.Decimal) decimal.Decimal {
	rate := money.ValueToDecimal(plan.DailyReturnRate)
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(rate.Div(e.intervalsPerDay)).Round(money.Scale)
}

func (e *Engine) creditUser(ctx context.Context, userID string, profit decimal.Decimal, message string) error {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	balance := money.ValueToDecimal(user.Balance)
	newBalance := balance.Add(profit)
	if err := e.users.UpdateBalance(ctx, e.exec, userID, money.Format(newBalance)); err != nil {
		return err
	}
	e.notify(ctx, userID, message)
	e.broadcast(userID, money.Format(newBalance))
	return nil
}

func (e *Engine) notify(ctx context.Context, userID, message string) {
	err := e.notifications.Create(ctx, store.NotificationInput{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   "Profit credited",
		Message: message,
		Type:    "success",
	})
	if err != nil {
		log.Printf("accrual: notification for user %s failed: %v", userID, err)
	}
}

func (e *Engine) broadcast(userID, balance string) {
	if e.hub == nil {
		return
	}
	e.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		Balance: balance,
		Reason:  "accrual",
	})
}
