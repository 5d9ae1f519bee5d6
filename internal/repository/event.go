package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/brightstage/line-gateway/internal/model"
)

type EventRepository interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindByInviteCode(ctx context.Context, code string) (*model.Event, error)
	FindActiveByCustomerID(ctx context.Context, customerID string) (*model.Event, error)
	ListByCustomerID(ctx context.Context, customerID string) ([]model.Event, error)
	Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error)
}

type eventRepo struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	err := r.db.GetContext(ctx, &ev, `
		SELECT * FROM events WHERE id = $1
	`, id)
	return HandleNotFound(&ev, err)
}

func (r *eventRepo) FindByInviteCode(ctx context.Context, code string) (*model.Event, error) {
	var ev model.Event
	err := r.db.GetContext(ctx, &ev, `
		SELECT * FROM events WHERE invite_code = $1
	`, code)
	return HandleNotFound(&ev, err)
}

// FindActiveByCustomerID returns the customer's most recently created event
// whose status is outside the terminal set, or nil when none exists. A
// customer normally has one active event, but the query does not assume it;
// most recent creation wins on ties.
func (r *eventRepo) FindActiveByCustomerID(ctx context.Context, customerID string) (*model.Event, error) {
	var ev model.Event
	err := r.db.GetContext(ctx, &ev, `
		SELECT * FROM events
		WHERE customer_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID)
	return HandleNotFound(&ev, err)
}

func (r *eventRepo) ListByCustomerID(ctx context.Context, customerID string) ([]model.Event, error) {
	var evs []model.Event
	err := r.db.SelectContext(ctx, &evs, `
		SELECT * FROM events
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	return evs, err
}

func (r *eventRepo) Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	var ev model.Event
	err := r.db.GetContext(ctx, &ev, `
		INSERT INTO events (customer_id, name, invite_code, target_date, venue, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.CustomerID, params.Name, params.InviteCode, params.TargetDate,
		params.Venue, params.Description, params.Status)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
