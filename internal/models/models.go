package models

import "time"

type User struct {
	ID            string    `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Balance       string    `db:"balance" json:"balance"`
	CurrentPlanID *string   `db:"current_plan_id" json:"current_plan_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type InvestmentPlan struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	MinAmount       string    `db:"min_amount" json:"min_amount"`
	DailyReturnRate string    `db:"daily_return_rate" json:"daily_return_rate"`
	DurationDays    int       `db:"duration_days" json:"duration_days"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Investment struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	PlanID        string    `db:"plan_id" json:"plan_id"`
	Amount        string    `db:"amount" json:"amount"`
	CurrentProfit string    `db:"current_profit" json:"current_profit"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	EndDate       time.Time `db:"end_date" json:"end_date"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Status    string    `db:"status" json:"status"`
	Amount    string    `db:"amount" json:"amount"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AccrualRun struct {
	ID                  string    `db:"id" json:"id"`
	StartedAt           time.Time `db:"started_at" json:"started_at"`
	FinishedAt          time.Time `db:"finished_at" json:"finished_at"`
	InvestmentsCredited int       `db:"investments_credited" json:"investments_credited"`
	InvestmentsSkipped  int       `db:"investments_skipped" json:"investments_skipped"`
	UsersCredited       int       `db:"users_credited" json:"users_credited"`
	Failures            int       `db:"failures" json:"failures"`
	TotalCredited       string    `db:"total_credited" json:"total_credited"`
}
