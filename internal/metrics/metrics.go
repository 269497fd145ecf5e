package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookup metrics
	LookupsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_lookups_completed_total",
			Help: "Total number of company lookups completed",
		},
		[]string{"status"}, // ok, degraded
	)

	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_lookup_duration_seconds",
			Help:    "End-to-end lookup duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Stage metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dossier_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	FieldCoercions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_field_coercions_total",
			Help: "Total number of extracted fields replaced during normalization",
		},
		[]string{"field"},
	)

	// Research metrics
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_source_fetches_total",
			Help: "Total number of research source fetches",
		},
		[]string{"status"}, // ok, cached, disallowed, error
	)

	ReportCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dossier_report_cache_hits_total",
			Help: "Total number of research reports served from cache",
		},
	)

	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_llm_tokens_total",
			Help: "Total number of LLM tokens used",
		},
		[]string{"provider", "purpose"},
	)

	// Link check metrics
	LinkChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_link_checks_total",
			Help: "Total number of reference links checked",
		},
		[]string{"status"}, // accessible, dead, unreachable
	)

	// Web metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "code"},
	)
)

// RecordStage records one stage execution
func RecordStage(stage string, d time.Duration, failed bool) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if failed {
		StageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordLookup records a finished lookup
func RecordLookup(degraded bool, d time.Duration) {
	status := "ok"
	if degraded {
		status = "degraded"
	}
	LookupsCompleted.WithLabelValues(status).Inc()
	LookupDuration.Observe(d.Seconds())
}

// RecordTokens records LLM token usage
func RecordTokens(provider, purpose string, tokens int) {
	if tokens > 0 {
		LLMTokensUsed.WithLabelValues(provider, purpose).Add(float64(tokens))
	}
}
