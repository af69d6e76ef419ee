package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the brief assistant
var (
	// brief_analyses_total{shape=full|empty}
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_analyses_total",
		Help: "Number of briefs analysed, by result shape",
	}, []string{"shape"})

	// brief_signal_detected{signal=platform|complexity|template|urgency|asset_count, value=...}
	SignalDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_signal_detected",
		Help: "Number of times a detector produced a signal",
	}, []string{"signal", "value"})

	// brief_recommendations_total{type=template|platform|pricing|urgency|package}
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_recommendations_total",
		Help: "Recommendations emitted, by type",
	}, []string{"type"})

	// brief_intake_decision{decision=AUTO_QUOTE|MANUAL_REVIEW}
	IntakeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_intake_decision",
		Help: "Intake policy decisions",
	}, []string{"decision"})

	// brief_http_requests_total{route, status}
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_http_requests_total",
		Help: "HTTP requests handled, by route and status code",
	}, []string{"route", "status"})

	// brief_latency_seconds (histogram): request duration
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brief_latency_seconds",
		Help:    "Request processing latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// brief_cache_lookups_total{result=hit|miss}
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_cache_lookups_total",
		Help: "Analyze response cache lookups",
	}, []string{"result"})
)

// RecordAnalysis counts an analysis by shape
func RecordAnalysis(empty bool) {
	shape := "full"
	if empty {
		shape = "empty"
	}
	AnalysesTotal.WithLabelValues(shape).Inc()
}

// RecordSignal increments the signal counter
func RecordSignal(signal, value string) {
	SignalDetected.WithLabelValues(signal, value).Inc()
}

// RecordRecommendation increments the recommendation counter
func RecordRecommendation(recType string) {
	Recommendations.WithLabelValues(recType).Inc()
}

// RecordIntakeDecision increments the intake decision counter
func RecordIntakeDecision(decision string) {
	IntakeDecisions.WithLabelValues(decision).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}
