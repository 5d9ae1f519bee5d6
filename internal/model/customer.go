package model

import (
	"time"
)

type Customer struct {
	ID             string         `db:"id" json:"id"`
	LineUID        string         `db:"line_uid" json:"lineUid"`
	DisplayName    string         `db:"display_name" json:"displayName"`
	AvatarURL      string         `db:"avatar_url" json:"avatarUrl"`
	Phone          string         `db:"phone" json:"phone"`
	Email          string         `db:"email" json:"email"`
	Company        string         `db:"company" json:"company"`
	Status         CustomerStatus `db:"status" json:"status"`
	FirstContactAt time.Time      `db:"first_contact_at" json:"firstContactAt"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// UpsertCustomerParams drives the upsert-by-line-uid primitive. On conflict
// only display name and avatar are refreshed; status and first-contact
// timestamp stay as they were written on creation.
type UpsertCustomerParams struct {
	LineUID        string
	DisplayName    string
	AvatarURL      string
	Status         CustomerStatus
	FirstContactAt time.Time
}
