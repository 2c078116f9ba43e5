package store

import (
	"context"
	"strconv"

	"coinvest/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID     string
	UserID string
	Type   string
	Status string
	Amount string
	Notes  string
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO transactions (id, user_id, type, status, amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.Type, input.Status, input.Amount, input.Notes,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) GetForUpdate(ctx context.Context, tx Getter, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) UpdateStatus(ctx context.Context, tx Execer, transactionID, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, transactionID)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	query := `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	param := 2
	if txType != "" {
		query += " AND type = $2"
		args = append(args, txType)
		param = 3
	}
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(param) + " OFFSET $" + strconv.Itoa(param+1)
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMarketTrades serves the historical trade feed. The token filter is a
// substring match against the note text, which names the token and amount.
func (s *TransactionStore) ListMarketTrades(ctx context.Context, token string, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, status, amount, notes, created_at
		FROM transactions
		WHERE type IN ('trade_buy', 'trade_sell') AND notes ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2
	`, token, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
