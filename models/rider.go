package models

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/padraicbc/riderapi/normalize"
)

// Rider is a canonical athlete identity. ResultCount is derived on read and
// never written.
type Rider struct {
	bun.BaseModel `bun:"table:riders,alias:rd"`

	ID          int64   `bun:"id,pk,autoincrement" json:"id"`
	Firstname   string  `bun:"firstname,notnull" json:"firstname"`
	Lastname    string  `bun:"lastname,notnull" json:"lastname"`
	BirthYear   *int    `bun:"birth_year" json:"birthYear,omitempty"`
	Nationality *string `bun:"nationality" json:"nationality,omitempty"`
	LicenseID   *string `bun:"license_id" json:"licenseID,omitempty"`
	ClubID      *int64  `bun:"club_id" json:"clubID,omitempty"`

	// Lookup columns, rewritten from the names on every insert and update.
	FirstnameLower string `bun:"firstname_lower,notnull" json:"-"`
	LastnameLower  string `bun:"lastname_lower,notnull" json:"-"`

	ResultCount int    `bun:"result_count,scanonly" json:"resultCount"`
	ClubName    string `bun:"club_name,scanonly" json:"clubName,omitempty"`
}

// License returns the license string or "" when absent.
func (r *Rider) License() string {
	if r.LicenseID == nil {
		return ""
	}
	return *r.LicenseID
}

var _ bun.BeforeAppendModelHook = (*Rider)(nil)

// BeforeAppendModel keeps the lookup columns in step with the names.
func (r *Rider) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		r.FirstnameLower = normalize.Lower(r.Firstname)
		r.LastnameLower = normalize.Lower(r.Lastname)
	}
	return nil
}
