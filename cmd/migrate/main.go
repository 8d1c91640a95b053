// cmd/migrate/main.go
// Copies the legacy MySQL results archive (users, clubs, riders, results)
// into the PostgreSQL canonical store.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/results?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/config"
	bundb "github.com/padraicbc/riderapi/db"
	applog "github.com/padraicbc/riderapi/logger"
	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.LoadTools()
	logger, err := applog.New("migrate", cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		logger.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/results?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		logger.Fatal("ping mysql", zap.Error(err))
	}
	logger.Info("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	logger.Info("connected to PostgreSQL")

	// Create tables (idempotent)
	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		logger.Fatal("create tables", zap.Error(err))
	}

	// Disable FK enforcement so we can load in bulk without strict ordering
	if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'replica'"); err != nil {
		logger.Fatal("disable FK", zap.Error(err))
	}
	defer func() {
		if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'origin'"); err != nil {
			logger.Error("re-enable FK", zap.Error(err))
		}
	}()

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"users", func() (int, error) { return migrateUsers(ctx, myDB, pgDB) }},
		{"clubs", func() (int, error) { return migrateClubs(ctx, myDB, pgDB) }},
		{"riders", func() (int, error) { return migrateRiders(ctx, myDB, pgDB) }},
		{"results", func() (int, error) { return migrateResults(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		start := time.Now()
		n, err := s.fn()
		if err != nil {
			logger.Fatal("migrate table", zap.String("table", s.name), zap.Error(err))
		}
		logger.Info("table migrated", zap.String("table", s.name), zap.Int("rows", n), zap.Duration("took", time.Since(start)))
	}

	resetSequences(ctx, pgDB, logger)
	logger.Info("migration complete")
}

// --- helpers ---

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// nullStr treats blank strings as absent.
func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := strings.TrimSpace(n.String)
	if s == "" {
		return nil
	}
	return &s
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows streams query results from MySQL into PostgreSQL in batches.
func copyRows[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// --- per-table migrations ---

func migrateUsers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	now := time.Now().UTC()
	return copyRows(ctx, myDB, pgDB, "SELECT id, username, password FROM users",
		func(rows *sql.Rows) (models.User, error) {
			r := models.User{CreatedAt: now}
			err := rows.Scan(&r.ID, &r.Username, &r.Password)
			return r, err
		})
}

func migrateClubs(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB, "SELECT id, name FROM clubs",
		func(rows *sql.Rows) (models.Club, error) {
			var r models.Club
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return r, err
			}
			r.Name = normalize.CollapseSpaces(r.Name)
			return r, nil
		})
}

func migrateRiders(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, firstname, lastname, birth_year, nationality, license_id, club_id
		 FROM riders`,
		func(rows *sql.Rows) (models.Rider, error) {
			var (
				r           models.Rider
				birthYear   sql.NullInt64
				nationality sql.NullString
				licenseID   sql.NullString
				clubID      sql.NullInt64
			)
			if err := rows.Scan(&r.ID, &r.Firstname, &r.Lastname, &birthYear, &nationality, &licenseID, &clubID); err != nil {
				return r, err
			}
			r.Firstname = normalize.CollapseSpaces(r.Firstname)
			r.Lastname = normalize.CollapseSpaces(r.Lastname)
			r.BirthYear = nullInt(birthYear)
			r.Nationality = nullStr(nationality)
			r.LicenseID = nullStr(licenseID)
			r.ClubID = nullInt64(clubID)
			return r, nil
		})
}

func migrateResults(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, rider_id, event_id, class, position, status, finish_time, points
		 FROM results`,
		func(rows *sql.Rows) (models.Result, error) {
			var (
				r          models.Result
				position   sql.NullInt64
				status     sql.NullString
				finishTime sql.NullString
				points     sql.NullInt64
			)
			if err := rows.Scan(&r.ID, &r.RiderID, &r.EventID, &r.Class, &position, &status, &finishTime, &points); err != nil {
				return r, err
			}
			r.Position = nullInt(position)
			r.Status = "finished"
			if s := nullStr(status); s != nil {
				r.Status = *s
			}
			r.FinishTime = nullStr(finishTime)
			r.Points = nullInt(points)
			return r, nil
		})
}

func resetSequences(ctx context.Context, pgDB *bun.DB, logger *zap.Logger) {
	seqs := []struct{ seq, table, col string }{
		{"users_id_seq", "users", "id"},
		{"clubs_id_seq", "clubs", "id"},
		{"riders_id_seq", "riders", "id"},
		{"results_id_seq", "results", "id"},
	}
	for _, s := range seqs {
		q := fmt.Sprintf(
			"SELECT setval('%s', COALESCE((SELECT MAX(%s) FROM %s), 1))",
			s.seq, s.col, s.table,
		)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			logger.Error("reset sequence", zap.String("sequence", s.seq), zap.Error(err))
		}
	}
	logger.Info("sequences reset")
}
