package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/brightstage/line-gateway/internal/model"
)

// ChatLogRepository is append-only: no update or delete operation exists.
type ChatLogRepository interface {
	Create(ctx context.Context, params model.CreateChatLogParams) (*model.ChatLog, error)
	ListByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]model.ChatLog, error)
	CountByCustomerID(ctx context.Context, customerID string) (int, error)
	ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error)
}

type chatLogRepo struct {
	db *sqlx.DB
}

func NewChatLogRepository(db *sqlx.DB) ChatLogRepository {
	return &chatLogRepo{db: db}
}

func (r *chatLogRepo) Create(ctx context.Context, params model.CreateChatLogParams) (*model.ChatLog, error) {
	var entry model.ChatLog
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO chat_logs (customer_id, event_id, direction, message_type, body, source_event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.CustomerID, params.EventID, params.Direction, params.MessageType,
		params.Body, params.SourceEventID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *chatLogRepo) ListByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]model.ChatLog, error) {
	var entries []model.ChatLog
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM chat_logs
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	return entries, err
}

func (r *chatLogRepo) CountByCustomerID(ctx context.Context, customerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_logs WHERE customer_id = $1
	`, customerID)
	return count, err
}

func (r *chatLogRepo) ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM chat_logs WHERE source_event_id = $1)
	`, sourceEventID)
	return exists, err
}
