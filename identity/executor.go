package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/normalize"
)

// Reference is a foreign key column pointing at riders.id that a merge
// rewrites from the retired rider to the survivor.
type Reference struct {
	Table  string
	Column string
}

// DefaultReferences lists every table referencing riders.
var DefaultReferences = []Reference{
	{Table: "results", Column: "rider_id"},
}

// Executor is the only component that mutates the canonical store. Each
// group is merged in its own transaction. Concurrent merge runs over
// overlapping groups are not guarded beyond the database's isolation; the
// losing run fails on the vanished rider and rolls that group back.
type Executor struct {
	db      *bun.DB
	norm    *normalize.Normalizer
	refs    []Reference
	log     *zap.Logger
	metrics *metrics.Recorder
}

// NewExecutor builds an Executor. refs defaults to DefaultReferences and rec
// may be nil.
func NewExecutor(db *bun.DB, norm *normalize.Normalizer, refs []Reference, logger *zap.Logger, rec *metrics.Recorder) *Executor {
	if len(refs) == 0 {
		refs = DefaultReferences
	}
	return &Executor{db: db, norm: norm, refs: refs, log: logger, metrics: rec}
}

// MergeGroup moves every reference from mergeIDs to keepID, records a
// redirect for each retired name and deletes the retired riders, all in one
// transaction.
func (e *Executor) MergeGroup(ctx context.Context, keepID int64, mergeIDs []int64) (*MergeReport, error) {
	mergeIDs, err := validateMerge(keepID, mergeIDs)
	if err != nil {
		return nil, err
	}

	report, err := e.mergeTx(ctx, keepID, mergeIDs)
	if err != nil {
		e.metrics.MergeFailed()
		e.log.Error("merge group failed",
			zap.Int64("keep_id", keepID),
			zap.Int64s("merge_ids", mergeIDs),
			zap.Error(err),
		)
		return nil, err
	}

	e.metrics.MergeSucceeded(len(report.MergedIDs), report.ResultsMoved)
	e.log.Info("merge group committed",
		zap.Int64("keep_id", report.KeepID),
		zap.Int64s("merged_ids", report.MergedIDs),
		zap.Int("results_moved", report.ResultsMoved),
	)
	return report, nil
}

func validateMerge(keepID int64, mergeIDs []int64) ([]int64, error) {
	if keepID == 0 || len(mergeIDs) == 0 {
		return nil, ErrAmbiguousMerge
	}
	seen := map[int64]bool{}
	out := make([]int64, 0, len(mergeIDs))
	for _, id := range mergeIDs {
		if id == keepID || id == 0 {
			return nil, ErrAmbiguousMerge
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func (e *Executor) mergeTx(ctx context.Context, keepID int64, mergeIDs []int64) (*MergeReport, error) {
	fail := func(riderID int64, op string, err error) (*MergeReport, error) {
		return nil, &TransactionError{KeepID: keepID, RiderID: riderID, Op: op, Err: err}
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(0, "begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	store := NewStore(tx)
	if _, err := store.Rider(ctx, keepID); err != nil {
		return fail(keepID, "load survivor", notFoundErr(err))
	}

	report := &MergeReport{
		KeepID:    keepID,
		MergedIDs: make([]int64, 0, len(mergeIDs)),
		MovedByID: make(map[int64]int, len(mergeIDs)),
	}

	for _, id := range mergeIDs {
		retired, err := store.Rider(ctx, id)
		if err != nil {
			return fail(id, "load", notFoundErr(err))
		}

		moved := 0
		for _, ref := range e.refs {
			res, err := tx.ExecContext(ctx, "UPDATE ? SET ? = ? WHERE ? = ?",
				bun.Ident(ref.Table), bun.Ident(ref.Column), keepID, bun.Ident(ref.Column), id)
			if err != nil {
				return fail(id, "reassign "+ref.Table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fail(id, "reassign "+ref.Table, err)
			}
			moved += int(n)
		}

		p := e.norm.Pair(retired.Firstname, retired.Lastname)
		if err := store.AddRedirect(ctx, p.First, p.Last, p.Key(), keepID); err != nil {
			return fail(id, "redirect", err)
		}
		// Names that already redirected to the retired rider follow it.
		older, err := store.RedirectsTo(ctx, id)
		if err != nil {
			return fail(id, "redirect", err)
		}
		for _, r := range older {
			if err := store.AddRedirect(ctx, r.MergedFirstname, r.MergedLastname, r.NameKey, keepID); err != nil {
				return fail(id, "redirect", err)
			}
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM riders WHERE id = ?", id)
		if err != nil {
			return fail(id, "delete", err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			if err == nil {
				err = fmt.Errorf("deleted %d rows", n)
			}
			return fail(id, "delete", err)
		}

		report.MergedIDs = append(report.MergedIDs, id)
		report.MovedByID[id] = moved
		report.ResultsMoved += moved
	}

	if err := tx.Commit(); err != nil {
		return fail(0, "commit", err)
	}
	committed = true
	return report, nil
}

func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rider does not exist: %w", err)
	}
	return err
}

// MergeAll merges groups one by one. A failed group is rolled back and
// reported; groups committed before it stay committed and later groups still
// run. When ctx is done the remaining groups are skipped, including one whose
// transaction was cut off.
func (e *Executor) MergeAll(ctx context.Context, groups []DuplicateGroup) BatchReport {
	report := BatchReport{
		RunID:   uuid.NewString(),
		Reports: []MergeReport{},
		Errors:  []string{},
	}
	log := e.log.With(zap.String("run_id", report.RunID))

	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(groups) - i
			report.Errors = append(report.Errors, fmt.Sprintf("%d groups skipped: %v", report.Skipped, err))
			break
		}

		mr, err := e.MergeGroup(ctx, g.KeepID, g.MergeIDs)
		if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
			// Cut off mid-transaction: rolled back, so it counts with the rest.
			report.Skipped = len(groups) - i
			report.Errors = append(report.Errors, fmt.Sprintf("%d groups skipped: %v", report.Skipped, err))
			break
		}
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("group keep=%d merge=%v: %v", g.KeepID, g.MergeIDs, err))
			continue
		}
		report.Succeeded++
		report.RecordsRetired += len(mr.MergedIDs)
		report.ResultsMoved += mr.ResultsMoved
		report.Reports = append(report.Reports, *mr)
	}

	log.Info("merge run finished",
		zap.Int("groups", len(groups)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("records_retired", report.RecordsRetired),
		zap.Int("results_moved", report.ResultsMoved),
	)
	return report
}
