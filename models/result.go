package models

import "github.com/uptrace/bun"

// Result is one rider's placing in one event class. RiderID is the foreign
// reference rewritten when riders are merged.
type Result struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID         int64   `bun:"id,pk,autoincrement" json:"id"`
	RiderID    int64   `bun:"rider_id,notnull" json:"riderID"`
	EventID    int64   `bun:"event_id,notnull" json:"eventID"`
	Class      string  `bun:"class,notnull" json:"class"`
	Position   *int    `bun:"position" json:"position,omitempty"`
	Status     string  `bun:"status,notnull" json:"status"`
	FinishTime *string `bun:"finish_time" json:"finishTime,omitempty"`
	Points     *int    `bun:"points" json:"points,omitempty"`
}
