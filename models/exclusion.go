package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ExclusionPair records that an operator marked two riders as different
// people. RiderA is always the smaller id; the table enforces it.
type ExclusionPair struct {
	bun.BaseModel `bun:"table:rider_exclusions,alias:rx"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	RiderA    int64     `bun:"rider_id_a,notnull,unique:rider_exclusions_pair" json:"riderIDA"`
	RiderB    int64     `bun:"rider_id_b,notnull,unique:rider_exclusions_pair" json:"riderIDB"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
