package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by kcbridge_login_total.
const (
	OutcomeSuccess            = "success"
	OutcomeBadRequest         = "bad_request"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInternalError      = "internal_error"
)

var (
	// loginTotal counts login attempts by terminal outcome.
	loginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kcbridge_login_total",
			Help: "Total number of admin login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// idpRequestDuration tracks latency of calls to the identity provider.
	idpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kcbridge_idp_request_duration_seconds",
			Help:    "Duration of identity provider requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// httpRequestDuration tracks API latency. Route is the chi route pattern,
	// never the raw path, to keep cardinality bounded.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kcbridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// RecordLogin increments the login counter for outcome.
func RecordLogin(outcome string) {
	loginTotal.WithLabelValues(outcome).Inc()
}

// ObserveIdPRequest records the time elapsed since start for an IdP operation.
func ObserveIdPRequest(operation string, start time.Time) {
	idpRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route, method, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
