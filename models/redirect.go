package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Redirect statuses. Only approved redirects are honored by lookups.
const (
	RedirectApproved = "approved"
	RedirectPending  = "pending"
	RedirectRejected = "rejected"
)

// MergeRedirect maps the name of a retired rider to the rider that survived
// the merge. Rows are append-only.
type MergeRedirect struct {
	bun.BaseModel `bun:"table:rider_merge_redirects,alias:mr"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	MergedFirstname  string    `bun:"merged_firstname,notnull" json:"mergedFirstname"`
	MergedLastname   string    `bun:"merged_lastname,notnull" json:"mergedLastname"`
	NameKey          string    `bun:"name_key,notnull" json:"-"`
	CanonicalRiderID int64     `bun:"canonical_rider_id,notnull" json:"canonicalRiderID"`
	Status           string    `bun:"status,notnull" json:"status"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"createdAt"`
}
