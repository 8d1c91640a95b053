package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/license"
	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

// DefaultClubDesignators are club-type words ignored when comparing club
// names, so "Alingsås SC" and "Alingsås Cykelklubb" compare equal. Entries
// are normalized keys.
var DefaultClubDesignators = []string{
	"sc", "ck", "cc", "cf", "ik", "if", "bk", "sk", "fk", "ok",
	"cykelklubb", "cykelklubben", "cykelsallskap", "cykelsallskapet",
	"cykelforening", "cykelforeningen", "sportklubb", "idrottsklubb",
	"idrottsforening", "idrottsallskap", "cykel", "cycling", "club", "klubb", "team",
}

// MatcherConfig tunes the candidate matcher.
type MatcherConfig struct {
	// ScanLimit caps the license-bearing population scanned by the fuzzy and
	// partial strategies. Zero scans everything.
	ScanLimit int
	// ClubDesignators overrides DefaultClubDesignators when non-empty.
	ClubDesignators []string
}

// DefaultMatcherConfig returns an unlimited scan with the default designators.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{ClubDesignators: DefaultClubDesignators}
}

// Matcher resolves incoming records against the canonical store with an
// ordered cascade that stops at the first strategy producing a match.
type Matcher struct {
	store      *Store
	norm       *normalize.Normalizer
	cfg        MatcherConfig
	log        *zap.Logger
	metrics    *metrics.Recorder
	strategies []strategy
	designator map[string]bool
}

// NewMatcher builds a Matcher. rec may be nil.
func NewMatcher(store *Store, norm *normalize.Normalizer, cfg MatcherConfig, logger *zap.Logger, rec *metrics.Recorder) *Matcher {
	if len(cfg.ClubDesignators) == 0 {
		cfg.ClubDesignators = DefaultClubDesignators
	}
	designator := make(map[string]bool, len(cfg.ClubDesignators))
	for _, d := range cfg.ClubDesignators {
		designator[norm.Key(d)] = true
	}
	return &Matcher{
		store:      store,
		norm:       norm,
		cfg:        cfg,
		log:        logger,
		metrics:    rec,
		strategies: cascade(),
		designator: designator,
	}
}

// Batch shares one population cache across many lookups, for import
// previews that match a whole file against the same store.
type Batch struct {
	m     *Matcher
	cache *population
}

// NewBatch starts a batch. The cache lives as long as the Batch.
func (m *Matcher) NewBatch() *Batch {
	return &Batch{m: m, cache: &population{}}
}

// Find matches one record using the batch cache.
func (b *Batch) Find(ctx context.Context, in IncomingRecord) (MatchResult, error) {
	return b.m.find(ctx, in, b.cache)
}

// Find returns the best match for in. A miss is returned as data.
func (m *Matcher) Find(ctx context.Context, in IncomingRecord) (MatchResult, error) {
	return m.find(ctx, in, &population{})
}

type population struct {
	loaded bool
	rows   []candidate
}

func (m *Matcher) find(ctx context.Context, in IncomingRecord, pop *population) (MatchResult, error) {
	q := m.prepare(in)
	if q.firstLower == "" || q.lastLower == "" {
		m.metrics.Match(string(MatchNone))
		return notFound(), nil
	}

	var byFirst []candidate
	byFirstLoaded := false

	for _, st := range m.strategies {
		var pool []candidate
		switch st.scope {
		case scopeFirstname:
			if !byFirstLoaded {
				rows, err := m.store.LicensedByFirstname(ctx, q.first)
				if err != nil {
					return notFound(), err
				}
				byFirst = m.candidates(rows)
				byFirstLoaded = true
			}
			pool = byFirst
		case scopePopulation:
			if !pop.loaded {
				rows, err := m.store.LicensedPopulation(ctx, m.cfg.ScanLimit)
				if err != nil {
					return notFound(), err
				}
				pop.rows = m.candidates(rows)
				pop.loaded = true
			}
			pool = pop.rows
		}

		best, confidence, ok := pickBest(st, q, pool)
		if !ok {
			continue
		}

		rider := best.rider
		m.log.Debug("rider matched",
			zap.String("strategy", st.name),
			zap.Int64("rider_id", rider.ID),
			zap.Int("confidence", confidence),
		)
		m.metrics.Match(string(st.matchType))
		return MatchResult{
			RiderID:    &rider.ID,
			Type:       st.matchType,
			Confidence: confidence,
			Strategy:   st.name,
			Rider:      &rider,
		}, nil
	}

	m.metrics.Match(string(MatchNone))
	return notFound(), nil
}

// pickBest applies one strategy to every candidate. Among qualifying rows
// the one holding the most recently issued license wins, then the newest id.
func pickBest(st strategy, q query, pool []candidate) (candidate, int, bool) {
	var (
		best     candidate
		bestConf int
		found    bool
	)
	for _, c := range pool {
		conf, ok := st.pick(q, c)
		if !ok {
			continue
		}
		if !found || moreRecent(c, best) {
			best, bestConf, found = c, conf, true
		}
	}
	return best, bestConf, found
}

func moreRecent(a, b candidate) bool {
	la, lb := a.rider.License(), b.rider.License()
	if license.Newer(la, lb) {
		return true
	}
	if license.Newer(lb, la) {
		return false
	}
	return a.rider.ID > b.rider.ID
}

// query is an incoming record prepared for comparison.
type query struct {
	first      string
	last       string
	firstLower string
	lastLower  string
	lastFold   string
	firstKey   string
	lastKey    string
	clubKey    string
	birthYear  *int
}

// candidate is a stored rider prepared for comparison.
type candidate struct {
	rider      models.Rider
	firstLower string
	lastLower  string
	lastFold   string
	firstKey   string
	lastKey    string
	clubKey    string
}

func (m *Matcher) prepare(in IncomingRecord) query {
	p := m.norm.Pair(in.Firstname, in.Lastname)
	return query{
		first:      p.First,
		last:       p.Last,
		firstLower: normalize.Lower(p.First),
		lastLower:  normalize.Lower(p.Last),
		lastFold:   m.norm.Fold(p.Last),
		firstKey:   p.FirstKey,
		lastKey:    p.LastKey,
		clubKey:    m.clubKey(in.ClubName),
		birthYear:  in.BirthYear,
	}
}

func (m *Matcher) candidates(rows []models.Rider) []candidate {
	out := make([]candidate, len(rows))
	for i, r := range rows {
		p := m.norm.Pair(r.Firstname, r.Lastname)
		out[i] = candidate{
			rider:      r,
			firstLower: normalize.Lower(p.First),
			lastLower:  normalize.Lower(p.Last),
			lastFold:   m.norm.Fold(p.Last),
			firstKey:   p.FirstKey,
			lastKey:    p.LastKey,
			clubKey:    m.clubKey(r.ClubName),
		}
	}
	return out
}

// clubKey keys a club name without its designator words. A name made only
// of designators keeps its full key.
func (m *Matcher) clubKey(name string) string {
	tokens := m.norm.Tokens(name)
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		if !m.designator[t] {
			b.WriteString(t)
		}
	}
	if b.Len() == 0 {
		return strings.Join(tokens, "")
	}
	return b.String()
}
