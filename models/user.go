package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an admin operator allowed to run matching and merges.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	Password  string    `bun:"password,notnull" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
