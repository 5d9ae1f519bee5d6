package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result without error.
// The Find* lookups here (customer by line uid, active event, invite code)
// all treat a missing row as a normal answer, not a failure.
//
// Usage:
//
//	var cust model.Customer
//	err := r.db.GetContext(ctx, &cust, query, args...)
//	return HandleNotFound(&cust, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
