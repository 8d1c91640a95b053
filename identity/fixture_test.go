package identity

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	appdb "github.com/padraicbc/riderapi/db"
	"github.com/padraicbc/riderapi/models"
)

// fixture is an in-memory canonical store with the production schema.
type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *bun.DB
	queries *queryCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sqldb, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and shared.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	counter := &queryCounter{}
	db.AddQueryHook(counter)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, appdb.CreateTables(ctx, db))

	return &fixture{t: t, ctx: ctx, db: db, queries: counter}
}

func (f *fixture) resolver() *Resolver {
	return NewResolver(f.db, Options{Logger: zaptest.NewLogger(f.t)})
}

func (f *fixture) club(name string) int64 {
	f.t.Helper()
	c := &models.Club{Name: name}
	_, err := f.db.NewInsert().Model(c).Exec(f.ctx)
	require.NoError(f.t, err)
	return c.ID
}

func (f *fixture) rider(r models.Rider) int64 {
	f.t.Helper()
	_, err := f.db.NewInsert().Model(&r).Exec(f.ctx)
	require.NoError(f.t, err)
	require.NotZero(f.t, r.ID)
	return r.ID
}

func (f *fixture) results(riderID int64, n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		pos := i + 1
		res := &models.Result{
			RiderID:  riderID,
			EventID:  int64(100 + i),
			Class:    "H21",
			Position: &pos,
			Status:   "finished",
		}
		_, err := f.db.NewInsert().Model(res).Exec(f.ctx)
		require.NoError(f.t, err)
	}
}

func (f *fixture) resultCount(riderID int64) int {
	f.t.Helper()
	n, err := f.db.NewSelect().Model((*models.Result)(nil)).Where("rider_id = ?", riderID).Count(f.ctx)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) riderExists(id int64) bool {
	f.t.Helper()
	ok, err := f.db.NewSelect().Model((*models.Rider)(nil)).Where("id = ?", id).Exists(f.ctx)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) exclusionRows() int {
	f.t.Helper()
	n, err := f.db.NewSelect().Model((*models.ExclusionPair)(nil)).Count(f.ctx)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) exclude(ids ...int64) {
	f.t.Helper()
	for _, p := range Pairs(ids) {
		_, err := f.db.NewInsert().Model(&models.ExclusionPair{
			RiderA:    p.A,
			RiderB:    p.B,
			CreatedAt: time.Now().UTC(),
		}).Exec(f.ctx)
		require.NoError(f.t, err)
	}
}

// queryCounter counts statements sent to the database.
type queryCounter struct {
	n atomic.Int64
}

func (c *queryCounter) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (c *queryCounter) AfterQuery(_ context.Context, _ *bun.QueryEvent) {
	c.n.Add(1)
}

func (c *queryCounter) count() int64 {
	return c.n.Load()
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
func int64p(i int64) *int64 { return &i }
