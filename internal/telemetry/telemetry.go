// Package telemetry exposes Prometheus metrics for drop-admin.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger outcome label values.
const (
	TriggerScheduled        = "scheduled"
	TriggerAlreadyProcessed = "already_processed"
	TriggerNotFound         = "not_found"
)

// Extraction outcome label values.
const (
	OutcomeExtracted     = "extracted"
	OutcomeMissingURL    = "error_missing_url"
	OutcomeFetchFailed   = "error_fetch"
	OutcomeNoContainer   = "error_container"
	OutcomeStoreFailed   = "error_store"
	OutcomeRecordMissing = "record_missing"
)

// Login result label values.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginDisabled           = "disabled"
)

// Metrics holds all drop-admin Prometheus metrics.
type Metrics struct {
	// TriggersTotal counts extraction trigger requests by outcome.
	TriggersTotal *prometheus.CounterVec
	// ExtractionsTotal counts finished extraction sequences by outcome.
	ExtractionsTotal *prometheus.CounterVec
	// ExtractionDuration observes how long extraction sequences run.
	ExtractionDuration prometheus.Histogram
	// LoginsTotal counts login attempts by result.
	LoginsTotal *prometheus.CounterVec
}

var (
	once    sync.Once
	metrics *Metrics
)

// New returns the process-wide metrics set. promauto registers with the
// global registry, so the set is created once and shared; repeated calls
// (including from tests) get the same instance.
func New() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			TriggersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "drop_admin_extraction_triggers_total",
				Help: "Extraction trigger requests by outcome (scheduled, already_processed, not_found)",
			}, []string{"outcome"}),
			ExtractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "drop_admin_extractions_total",
				Help: "Finished extraction sequences by outcome",
			}, []string{"outcome"}),
			ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "drop_admin_extraction_duration_seconds",
				Help:    "Duration of extraction sequences from claim to persisted outcome",
				Buckets: prometheus.DefBuckets,
			}),
			LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "drop_admin_logins_total",
				Help: "Login attempts by result (success, invalid_credentials, disabled)",
			}, []string{"result"}),
		}
	})
	return metrics
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
