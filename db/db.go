package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"runtime"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/riderapi/config"
	"github.com/padraicbc/riderapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	maxOpen := 4 * runtime.GOMAXPROCS(0)
	sqldb.SetMaxOpenConns(maxOpen)
	sqldb.SetMaxIdleConns(maxOpen)
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order. The exclusion ledger
// and redirect tables are part of the schema, not created on first use.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		model       interface{}
		foreignKeys []string
		checks      []string
	}{
		{model: (*models.User)(nil)},
		{model: (*models.Club)(nil)},
		{
			model:       (*models.Rider)(nil),
			foreignKeys: []string{`("club_id") REFERENCES "clubs" ("id") ON DELETE SET NULL`},
		},
		{
			model:       (*models.Result)(nil),
			foreignKeys: []string{`("rider_id") REFERENCES "riders" ("id")`},
		},
		{
			model:  (*models.ExclusionPair)(nil),
			checks: []string{`CHECK ("rider_id_a" < "rider_id_b")`},
		},
		{model: (*models.MergeRedirect)(nil)},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		for _, c := range t.checks {
			q = q.ColumnExpr(c)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", t.model, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS riders_name_idx ON riders (firstname_lower, lastname_lower)`,
		`CREATE INDEX IF NOT EXISTS riders_license_idx ON riders (license_id)`,
		`CREATE INDEX IF NOT EXISTS results_rider_idx ON results (rider_id)`,
		`CREATE INDEX IF NOT EXISTS rider_merge_redirects_key_idx ON rider_merge_redirects (name_key, status)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}
