// Package identity resolves incoming rider records against the canonical
// rider store and merges duplicate riders without losing their results.
//
// Matching is read-only and reports misses as data. Merges and exclusions
// are the only mutating paths; each runs in one transaction per group or
// batch.
package identity

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

// Resolver wires the engine components behind the operations offered to
// import flows, the admin API and the maintenance CLI.
type Resolver struct {
	store    *Store
	norm     *normalize.Normalizer
	matcher  *Matcher
	grouper  *Grouper
	ledger   *Ledger
	executor *Executor
	log      *zap.Logger
}

// Options configures NewResolver. Zero values select the defaults.
type Options struct {
	Normalizer *normalize.Normalizer
	Matcher    MatcherConfig
	References []Reference
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

// NewResolver builds the engine on db.
func NewResolver(db *bun.DB, opts Options) *Resolver {
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.Default
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	store := NewStore(db)
	ledger := NewLedger(db, opts.Logger.Named("ledger"), opts.Metrics)
	return &Resolver{
		store:    store,
		norm:     opts.Normalizer,
		matcher:  NewMatcher(store, opts.Normalizer, opts.Matcher, opts.Logger.Named("matcher"), opts.Metrics),
		grouper:  NewGrouper(store, ledger, opts.Normalizer, opts.Logger.Named("grouper"), opts.Metrics),
		ledger:   ledger,
		executor: NewExecutor(db, opts.Normalizer, opts.References, opts.Logger.Named("merge"), opts.Metrics),
		log:      opts.Logger,
	}
}

// Store exposes the read side for listings.
func (r *Resolver) Store() *Store {
	return r.store
}

// FindCandidate returns the best canonical match for in.
func (r *Resolver) FindCandidate(ctx context.Context, in IncomingRecord) (MatchResult, error) {
	return r.matcher.Find(ctx, in)
}

// FindCandidates matches a whole import, scanning the license population at
// most once.
func (r *Resolver) FindCandidates(ctx context.Context, records []IncomingRecord) ([]MatchResult, error) {
	batch := r.matcher.NewBatch()
	out := make([]MatchResult, len(records))
	for i, in := range records {
		res, err := batch.Find(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

// Resolution is the outcome of FindOrCreate.
type Resolution struct {
	RiderID  int64       `json:"riderID"`
	Created  bool        `json:"created"`
	Source   string      `json:"source"`
	Match    MatchResult `json:"match"`
	Redirect *int64      `json:"redirectID,omitempty"`
}

// Resolution sources.
const (
	SourceMatch     = "match"
	SourceRedirect  = "redirect"
	SourceExactName = "exact_name"
	SourceCreated   = "created"
)

// FindOrCreate returns the canonical id for in. On a miss it consults
// approved merge redirects for the normalized name before creating a rider,
// so a retired duplicate is never resurrected by a re-import.
func (r *Resolver) FindOrCreate(ctx context.Context, in IncomingRecord) (Resolution, error) {
	match, err := r.matcher.Find(ctx, in)
	if err != nil {
		return Resolution{}, err
	}
	if match.Found() {
		return Resolution{RiderID: *match.RiderID, Source: SourceMatch, Match: match}, nil
	}

	p := r.norm.Pair(in.Firstname, in.Lastname)
	if p.First == "" || p.Last == "" {
		return Resolution{}, ErrIncompleteName
	}

	// Names with no [a-z0-9] characters have no key and never hit a redirect.
	var redirect *models.MergeRedirect
	if p.FirstKey != "" && p.LastKey != "" {
		redirect, err = r.store.ApprovedRedirect(ctx, p.Key())
		if err != nil {
			return Resolution{}, err
		}
	}
	if redirect != nil {
		r.log.Debug("merge redirect honored",
			zap.String("name", p.First+" "+p.Last),
			zap.Int64("rider_id", redirect.CanonicalRiderID),
		)
		return Resolution{
			RiderID:  redirect.CanonicalRiderID,
			Source:   SourceRedirect,
			Match:    match,
			Redirect: &redirect.ID,
		}, nil
	}

	same, err := r.store.ByExactName(ctx, p.First, p.Last)
	if err != nil {
		return Resolution{}, err
	}
	if len(same) > 0 {
		return Resolution{RiderID: same[0].ID, Source: SourceExactName, Match: match}, nil
	}

	rider, err := r.store.CreateRider(ctx, in)
	if err != nil {
		return Resolution{}, err
	}
	r.log.Info("rider created", zap.Int64("rider_id", rider.ID), zap.String("name", rider.Firstname+" "+rider.Lastname))
	return Resolution{RiderID: rider.ID, Created: true, Source: SourceCreated, Match: match}, nil
}

// DetectDuplicateGroups runs the maintenance scan.
func (r *Resolver) DetectDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	return r.grouper.Detect(ctx)
}

// MergeGroup merges one group.
func (r *Resolver) MergeGroup(ctx context.Context, keepID int64, mergeIDs []int64) (*MergeReport, error) {
	return r.executor.MergeGroup(ctx, keepID, mergeIDs)
}

// MergeAll merges groups independently and reports per-group outcomes.
func (r *Resolver) MergeAll(ctx context.Context, groups []DuplicateGroup) BatchReport {
	return r.executor.MergeAll(ctx, groups)
}

// PlanGroup loads the given riders and ranks them, for operators who pick
// a group by hand.
func (r *Resolver) PlanGroup(ctx context.Context, ids []int64) (DuplicateGroup, error) {
	ids = distinctSorted(ids)
	if len(ids) < 2 {
		return DuplicateGroup{}, ErrAmbiguousMerge
	}
	riders, err := r.store.ByIDs(ctx, ids)
	if err != nil {
		return DuplicateGroup{}, err
	}
	if len(riders) != len(ids) {
		return DuplicateGroup{}, fmt.Errorf("plan group: %d of %d riders exist: %w", len(riders), len(ids), ErrAmbiguousMerge)
	}
	return Plan(riders)
}

// ExcludePair marks every pair of ids as different people.
func (r *Resolver) ExcludePair(ctx context.Context, ids []int64) (int, error) {
	return r.ledger.Exclude(ctx, ids)
}
