package store

import (
	"context"

	"coinvest/internal/models"
)

// AccrualRunStore persists one summary row per accrual tick so operators can
// watch engine health without scraping logs.
type AccrualRunStore struct {
	db DB
}

func NewAccrualRunStore(db DB) *AccrualRunStore {
	return &AccrualRunStore{db: db}
}

type AccrualRunInput struct {
	ID                  string
	StartedAt           any
	FinishedAt          any
	InvestmentsCredited int
	InvestmentsSkipped  int
	UsersCredited       int
	Failures            int
	TotalCredited       string
}

func (s *AccrualRunStore) Record(ctx context.Context, input AccrualRunInput) error {
	query := `
		INSERT INTO accrual_runs (id, started_at, finished_at, investments_credited, investments_skipped, users_credited, failures, total_credited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		input.ID, input.StartedAt, input.FinishedAt,
		input.InvestmentsCredited, input.InvestmentsSkipped, input.UsersCredited,
		input.Failures, input.TotalCredited,
	)
	return err
}

func (s *AccrualRunStore) ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error) {
	var rows []models.AccrualRun
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, started_at, finished_at, investments_credited, investments_skipped, users_credited, failures, total_credited
		FROM accrual_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
