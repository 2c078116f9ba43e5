package store

import (
	"context"

	"coinvest/internal/models"
)

type InvestmentStore struct {
	db DB
}

func NewInvestmentStore(db DB) *InvestmentStore {
	return &InvestmentStore{db: db}
}

func (s *InvestmentStore) Create(ctx context.Context, tx Execer, inv models.Investment) error {
	query := `
		INSERT INTO investments (id, user_id, plan_id, amount, current_profit, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.PlanID, inv.Amount, inv.CurrentProfit, inv.StartDate, inv.EndDate, inv.IsActive,
	)
	return err
}

func (s *InvestmentStore) ListActive(ctx context.Context) ([]models.Investment, error) {
	var rows []models.Investment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, plan_id, amount, current_profit, start_date, end_date, is_active, created_at
		FROM investments
		WHERE is_active = TRUE
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InvestmentStore) ListByUser(ctx context.Context, userID string) ([]models.Investment, error) {
	var rows []models.Investment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, plan_id, amount, current_profit, start_date, end_date, is_active, created_at
		FROM investments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InvestmentStore) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM investments
		WHERE user_id = $1 AND is_active = TRUE
	`, userID)
	return count, err
}

func (s *InvestmentStore) UpdateProfit(ctx context.Context, tx Execer, investmentID, currentProfit string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET current_profit = $1, updated_at = NOW()
		WHERE id = $2
	`, currentProfit, investmentID)
	return err
}

// Close flips an investment inactive. Never called by the accrual engine;
// expiry is an explicit admin action.
func (s *InvestmentStore) Close(ctx context.Context, tx Execer, investmentID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, investmentID)
	return err
}
