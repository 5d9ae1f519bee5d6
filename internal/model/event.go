package model

import (
	"time"
)

// Event is a customer's project/job thread. The invite code is globally
// unique and immutable once assigned.
type Event struct {
	ID          string      `db:"id" json:"id"`
	CustomerID  string      `db:"customer_id" json:"customerId"`
	Name        string      `db:"name" json:"name"`
	InviteCode  string      `db:"invite_code" json:"inviteCode"`
	TargetDate  *time.Time  `db:"target_date" json:"targetDate,omitempty"`
	Venue       string      `db:"venue" json:"venue"`
	Description string      `db:"description" json:"description"`
	Status      EventStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

type CreateEventParams struct {
	CustomerID  string
	Name        string
	InviteCode  string
	TargetDate  *time.Time
	Venue       string
	Description string
	Status      EventStatus
}
