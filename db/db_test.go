package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/padraicbc/riderapi/models"
)

func TestCreateTablesIsIdempotent(t *testing.T) {
	sqldb, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, CreateTables(ctx, db))
	require.NoError(t, CreateTables(ctx, db))

	for _, table := range []string{"users", "clubs", "riders", "results", "rider_exclusions", "rider_merge_redirects"} {
		var n int
		err := db.NewRaw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	// Results must point at an existing rider.
	_, err = db.NewInsert().Model(&models.Result{RiderID: 42, EventID: 1, Class: "H21", Status: "finished"}).Exec(ctx)
	assert.Error(t, err)

	// One ledger row per pair.
	now := time.Now().UTC()
	pair := &models.ExclusionPair{RiderA: 1, RiderB: 2, CreatedAt: now}
	_, err = db.NewInsert().Model(pair).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.ExclusionPair{RiderA: 1, RiderB: 2, CreatedAt: now}).Exec(ctx)
	assert.Error(t, err)

	// Pairs are stored smaller id first, so (2,1) cannot sneak in beside (1,2).
	_, err = db.NewInsert().Model(&models.ExclusionPair{RiderA: 2, RiderB: 1, CreatedAt: now}).Exec(ctx)
	assert.Error(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO rider_exclusions (rider_id_a, rider_id_b, created_at) VALUES (3, 3, ?)", now)
	assert.Error(t, err)
}

func TestRiderLookupColumns(t *testing.T) {
	sqldb, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, CreateTables(ctx, db))

	riders := []models.Rider{
		{Firstname: "Åsa", Lastname: "Öberg"},
		{Firstname: " ÉMILE ", Lastname: "Östlund  Berg"},
	}
	_, err = db.NewInsert().Model(&riders).Exec(ctx)
	require.NoError(t, err)

	var firsts, lasts []string
	err = db.NewRaw("SELECT firstname_lower, lastname_lower FROM riders ORDER BY id").Scan(ctx, &firsts, &lasts)
	require.NoError(t, err)
	assert.Equal(t, []string{"åsa", "émile"}, firsts)
	assert.Equal(t, []string{"öberg", "östlund berg"}, lasts)

	riders[0].Firstname = "Åse"
	_, err = db.NewUpdate().Model(&riders[0]).WherePK().Exec(ctx)
	require.NoError(t, err)
	var first string
	require.NoError(t, db.NewRaw("SELECT firstname_lower FROM riders WHERE id = ?", riders[0].ID).Scan(ctx, &first))
	assert.Equal(t, "åse", first)
}
