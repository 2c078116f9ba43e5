package store

import (
	"context"

	"coinvest/internal/models"
)

type PlanStore struct {
	db DB
}

func NewPlanStore(db DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) Create(ctx context.Context, tx Execer, plan models.InvestmentPlan) error {
	query := `
		INSERT INTO investment_plans (id, name, min_amount, daily_return_rate, duration_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.MinAmount, plan.DailyReturnRate, plan.DurationDays, plan.IsActive,
	)
	return err
}

// Update touches only the admin-editable fields.
func (s *PlanStore) Update(ctx context.Context, tx Execer, planID, minAmount, dailyReturnRate string, isActive bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE investment_plans
		SET min_amount = $1, daily_return_rate = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4
	`, minAmount, dailyReturnRate, isActive, planID)
	return err
}

func (s *PlanStore) GetByID(ctx context.Context, planID string) (models.InvestmentPlan, error) {
	var row models.InvestmentPlan
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, min_amount, daily_return_rate, duration_days, is_active, created_at
		FROM investment_plans
		WHERE id = $1
	`, planID)
	if err != nil {
		return models.InvestmentPlan{}, err
	}
	return row, nil
}

func (s *PlanStore) ListActive(ctx context.Context) ([]models.InvestmentPlan, error) {
	var rows []models.InvestmentPlan
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, min_amount, daily_return_rate, duration_days, is_active, created_at
		FROM investment_plans
		WHERE is_active = TRUE
		ORDER BY min_amount
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PlanStore) ListAll(ctx context.Context) ([]models.InvestmentPlan, error) {
	var rows []models.InvestmentPlan
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, min_amount, daily_return_rate, duration_days, is_active, created_at
		FROM investment_plans
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
