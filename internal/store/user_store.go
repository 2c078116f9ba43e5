package store

import (
	"context"

	"coinvest/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, balance)
		VALUES ($1, $2, $3, $4, 0)
	`
	_, err := tx.ExecContext(ctx, query, id, username, email, passwordHash)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		WHERE username = $1
	`, username)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) ListAll(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListWithPlan returns users eligible for fallback accrual consideration:
// a current plan is set and the stored balance is positive.
func (s *UserStore) ListWithPlan(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, username, email, password_hash, balance, current_plan_id, created_at
		FROM users
		WHERE current_plan_id IS NOT NULL AND balance > 0
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *UserStore) UpdateBalance(ctx context.Context, tx Execer, userID, balance string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, userID)
	return err
}

func (s *UserStore) SetCurrentPlan(ctx context.Context, tx Execer, userID string, planID *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET current_plan_id = $1, updated_at = NOW()
		WHERE id = $2
	`, planID, userID)
	return err
}
