package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/brightstage/line-gateway/internal/model"
)

type CustomerRepository interface {
	FindByID(ctx context.Context, id string) (*model.Customer, error)
	FindByLineUID(ctx context.Context, lineUID string) (*model.Customer, error)
	List(ctx context.Context, limit, offset int) ([]model.Customer, error)
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, params model.UpsertCustomerParams) (*model.Customer, error)
	UpdateStatus(ctx context.Context, lineUID string, status model.CustomerStatus) (int64, error)
}

type customerRepo struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	var cust model.Customer
	err := r.db.GetContext(ctx, &cust, `
		SELECT * FROM customers WHERE id = $1
	`, id)
	return HandleNotFound(&cust, err)
}

func (r *customerRepo) FindByLineUID(ctx context.Context, lineUID string) (*model.Customer, error) {
	var cust model.Customer
	err := r.db.GetContext(ctx, &cust, `
		SELECT * FROM customers WHERE line_uid = $1
	`, lineUID)
	return HandleNotFound(&cust, err)
}

func (r *customerRepo) List(ctx context.Context, limit, offset int) ([]model.Customer, error) {
	var custs []model.Customer
	err := r.db.SelectContext(ctx, &custs, `
		SELECT * FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return custs, err
}

func (r *customerRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM customers`)
	return count, err
}

// Upsert creates the customer on first contact or refreshes the profile
// mirror fields on conflict. Status and first_contact_at are written only on
// insert; empty profile fields never clobber existing values.
func (r *customerRepo) Upsert(ctx context.Context, params model.UpsertCustomerParams) (*model.Customer, error) {
	var cust model.Customer
	err := r.db.GetContext(ctx, &cust, `
		INSERT INTO customers (line_uid, display_name, avatar_url, status, first_contact_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (line_uid) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE customers.display_name END,
			avatar_url   = CASE WHEN EXCLUDED.avatar_url <> '' THEN EXCLUDED.avatar_url ELSE customers.avatar_url END,
			updated_at   = NOW()
		RETURNING *
	`, params.LineUID, params.DisplayName, params.AvatarURL, params.Status, params.FirstContactAt)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (r *customerRepo) UpdateStatus(ctx context.Context, lineUID string, status model.CustomerStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers SET status = $2, updated_at = NOW() WHERE line_uid = $1
	`, lineUID, status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
