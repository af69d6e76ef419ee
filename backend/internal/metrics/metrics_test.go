package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(AnalysesTotal.WithLabelValues("empty"))
	RecordAnalysis(true)
	assert.Equal(t, before+1, testutil.ToFloat64(AnalysesTotal.WithLabelValues("empty")))
}

func TestRecordSignal(t *testing.T) {
	before := testutil.ToFloat64(SignalDetected.WithLabelValues("platform", "shopee"))
	RecordSignal("platform", "shopee")
	RecordSignal("platform", "shopee")
	assert.Equal(t, before+2, testutil.ToFloat64(SignalDetected.WithLabelValues("platform", "shopee")))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))
}
