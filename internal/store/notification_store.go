package store

import (
	"context"

	"coinvest/internal/models"
)

type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

type NotificationInput struct {
	ID      string
	UserID  string
	Title   string
	Message string
	Type    string
}

func (s *NotificationStore) Create(ctx context.Context, input NotificationInput) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, type, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`
	_, err := s.db.ExecContext(ctx, query,
		input.ID, input.UserID, input.Title, input.Message, input.Type,
	)
	return err
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
