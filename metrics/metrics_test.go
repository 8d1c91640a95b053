package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Match("exact")
	r.Match("exact")
	r.Match("not_found")
	r.MergeSucceeded(2, 7)
	r.MergeFailed()
	r.Excluded(3)
	r.Groups(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.matches.WithLabelValues("exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.matches.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.merges.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.merges.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.retired))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.resultsMoved))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.exclusions))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.groups))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Match("exact")
		r.MergeSucceeded(1, 1)
		r.MergeFailed()
		r.Excluded(1)
		r.Groups(1)
	})
}
