package identity

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/license"
	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

const (
	passExact = "exact"
	passFuzzy = "fuzzy"
)

// Grouper scans the whole canonical store for probable duplicates.
type Grouper struct {
	store   *Store
	ledger  *Ledger
	norm    *normalize.Normalizer
	log     *zap.Logger
	metrics *metrics.Recorder
}

// NewGrouper builds a Grouper. rec may be nil.
func NewGrouper(store *Store, ledger *Ledger, norm *normalize.Normalizer, logger *zap.Logger, rec *metrics.Recorder) *Grouper {
	return &Grouper{store: store, ledger: ledger, norm: norm, log: logger, metrics: rec}
}

// Detect returns every accepted duplicate group, planned and ready to merge.
func (g *Grouper) Detect(ctx context.Context) ([]DuplicateGroup, error) {
	riders, err := g.store.AllWithCounts(ctx)
	if err != nil {
		return nil, err
	}
	excluded, err := g.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	candidates := candidateGroups(riders, g.norm)

	var (
		out      []DuplicateGroup
		rejected = map[string]int{}
	)
	for _, c := range candidates {
		if reason := rejectReason(c.members, excluded); reason != "" {
			rejected[reason]++
			continue
		}
		group, err := Plan(c.members)
		if err != nil {
			return nil, fmt.Errorf("plan group %v: %w", riderIDs(c.members), err)
		}
		group.Pass = c.pass
		out = append(out, group)
	}

	g.log.Info("duplicate scan finished",
		zap.Int("riders", len(riders)),
		zap.Int("candidates", len(candidates)),
		zap.Int("groups", len(out)),
		zap.Any("rejected", rejected),
	)
	g.metrics.Groups(len(out))
	return out, nil
}

type candidateGroup struct {
	pass    string
	members []models.Rider
}

// candidateGroups runs both grouping passes. The exact pass keys on the full
// first|last key. The fuzzy pass keys on the first name and the last surname
// token and only keeps keys spelled at least two ways; members already in an
// exact group are dropped from it. Riders are visited in input order, so the
// output is deterministic.
func candidateGroups(riders []models.Rider, norm *normalize.Normalizer) []candidateGroup {
	var (
		exactOrder []string
		exact      = map[string][]models.Rider{}
		fuzzyOrder []string
		fuzzy      = map[string][]models.Rider{}
	)
	for _, r := range riders {
		p := norm.Pair(r.Firstname, r.Lastname)
		if p.FirstKey == "" || p.LastKey == "" {
			continue
		}
		key := p.Key()
		if _, ok := exact[key]; !ok {
			exactOrder = append(exactOrder, key)
		}
		exact[key] = append(exact[key], r)

		token := norm.LastToken(p.Last)
		if token == "" {
			continue
		}
		fkey := p.FirstKey + "|" + token
		if _, ok := fuzzy[fkey]; !ok {
			fuzzyOrder = append(fuzzyOrder, fkey)
		}
		fuzzy[fkey] = append(fuzzy[fkey], r)
	}

	var out []candidateGroup
	captured := map[int64]bool{}
	for _, key := range exactOrder {
		members := exact[key]
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			captured[m.ID] = true
		}
		out = append(out, candidateGroup{pass: passExact, members: members})
	}

	for _, key := range fuzzyOrder {
		members := fuzzy[key]
		if len(members) < 2 || distinctSpellings(members) < 2 {
			continue
		}
		var rest []models.Rider
		for _, m := range members {
			if !captured[m.ID] {
				rest = append(rest, m)
			}
		}
		if len(rest) < 2 {
			continue
		}
		for _, m := range rest {
			captured[m.ID] = true
		}
		out = append(out, candidateGroup{pass: passFuzzy, members: rest})
	}
	return out
}

func distinctSpellings(members []models.Rider) int {
	seen := map[string]bool{}
	for _, m := range members {
		seen[strings.TrimSpace(m.Lastname)] = true
	}
	return len(seen)
}

const (
	rejectBirthYear  = "birth_year_conflict"
	rejectSharedLic  = "shared_license"
	rejectNoLicense  = "no_license"
	rejectExclusions = "excluded"
)

// rejectReason applies the acceptance guards in order and returns "" for an
// accepted group.
func rejectReason(members []models.Rider, excluded PairSet) string {
	years := map[int]bool{}
	for _, m := range members {
		if m.BirthYear != nil {
			years[*m.BirthYear] = true
		}
	}
	if len(years) >= 2 {
		return rejectBirthYear
	}

	licenses := map[string]bool{}
	missing := 0
	for _, m := range members {
		if c := license.Canonical(m.License()); c != "" {
			licenses[c] = true
		} else {
			missing++
		}
	}
	switch {
	case len(licenses) >= 2:
	case missing == len(members):
		return rejectNoLicense
	case missing == 0:
		return rejectSharedLic
	}

	if excluded.CoversAll(riderIDs(members)) {
		return rejectExclusions
	}
	return ""
}

func riderIDs(members []models.Rider) []int64 {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
