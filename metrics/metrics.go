// Package metrics exposes Prometheus counters for rider matching and merges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "riderapi"

// Recorder holds the identity engine metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	matches      *prometheus.CounterVec
	merges       *prometheus.CounterVec
	retired      prometheus.Counter
	resultsMoved prometheus.Counter
	exclusions   prometheus.Counter
	groups       prometheus.Gauge
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		matches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "lookups_total",
			Help:      "Candidate lookups by match type.",
		}, []string{"match_type"}),
		merges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "groups_total",
			Help:      "Group merges by outcome.",
		}, []string{"outcome"}),
		retired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "riders_retired_total",
			Help:      "Rider records deleted by merges.",
		}),
		resultsMoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "results_moved_total",
			Help:      "Result rows reassigned to surviving riders.",
		}),
		exclusions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "pairs_excluded_total",
			Help:      "Rider pairs submitted to the exclusion ledger.",
		}),
		groups: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "grouper",
			Name:      "duplicate_groups",
			Help:      "Duplicate groups found by the last scan.",
		}),
	}
}

// Match counts one lookup outcome.
func (r *Recorder) Match(matchType string) {
	if r == nil {
		return
	}
	r.matches.WithLabelValues(matchType).Inc()
}

// MergeSucceeded counts a committed group merge.
func (r *Recorder) MergeSucceeded(retired, moved int) {
	if r == nil {
		return
	}
	r.merges.WithLabelValues("succeeded").Inc()
	r.retired.Add(float64(retired))
	r.resultsMoved.Add(float64(moved))
}

// MergeFailed counts a rolled back group merge.
func (r *Recorder) MergeFailed() {
	if r == nil {
		return
	}
	r.merges.WithLabelValues("failed").Inc()
}

// Excluded counts ledger pairs.
func (r *Recorder) Excluded(pairs int) {
	if r == nil {
		return
	}
	r.exclusions.Add(float64(pairs))
}

// Groups records the size of the last duplicate scan.
func (r *Recorder) Groups(n int) {
	if r == nil {
		return
	}
	r.groups.Set(float64(n))
}
