package identity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/models"
)

// Pair is an unordered rider pair stored with the smaller id first.
type Pair struct {
	A, B int64
}

// NewPair orders a and b.
func NewPair(a, b int64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Pairs returns every combination of two distinct ids, ordered.
func Pairs(ids []int64) []Pair {
	ids = distinctSorted(ids)
	out := make([]Pair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			out = append(out, Pair{A: ids[i], B: ids[j]})
		}
	}
	return out
}

// PairSet is an in-memory snapshot of the exclusion ledger.
type PairSet map[Pair]struct{}

// Has reports whether a and b are marked as different people.
func (s PairSet) Has(a, b int64) bool {
	_, ok := s[NewPair(a, b)]
	return ok
}

// CoversAll reports whether every pair of ids is excluded.
func (s PairSet) CoversAll(ids []int64) bool {
	pairs := Pairs(ids)
	if len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		if _, ok := s[p]; !ok {
			return false
		}
	}
	return true
}

// Ledger stores operator "not the same person" decisions. Rows are never
// updated and never expire.
type Ledger struct {
	db      *bun.DB
	log     *zap.Logger
	metrics *metrics.Recorder
}

// NewLedger builds a Ledger. rec may be nil.
func NewLedger(db *bun.DB, logger *zap.Logger, rec *metrics.Recorder) *Ledger {
	return &Ledger{db: db, log: logger, metrics: rec}
}

// Exclude stores every pairwise combination of ids in one transaction.
// Pairs already present are left alone. It returns the number of pairs the
// ids form.
func (l *Ledger) Exclude(ctx context.Context, ids []int64) (int, error) {
	pairs := Pairs(ids)
	if len(pairs) == 0 {
		return 0, ErrInvalidExclusionInput
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin exclusion tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, p := range pairs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rider_exclusions (rider_id_a, rider_id_b, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			p.A, p.B, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert exclusion %d/%d: %w", p.A, p.B, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit exclusions: %w", err)
	}
	committed = true

	l.log.Info("riders excluded", zap.Int64s("rider_ids", distinctSorted(ids)), zap.Int("pairs", len(pairs)))
	l.metrics.Excluded(len(pairs))
	return len(pairs), nil
}

// Snapshot loads the whole ledger.
func (l *Ledger) Snapshot(ctx context.Context) (PairSet, error) {
	var rows []models.ExclusionPair
	err := l.db.NewSelect().
		Model(&rows).
		Column("rider_id_a", "rider_id_b").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select exclusions: %w", err)
	}
	set := make(PairSet, len(rows))
	for _, r := range rows {
		set[NewPair(r.RiderA, r.RiderB)] = struct{}{}
	}
	return set, nil
}

func distinctSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
