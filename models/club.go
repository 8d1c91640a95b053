package models

import "github.com/uptrace/bun"

// Club is a cycling club riders can be attached to.
type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:cl"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}
