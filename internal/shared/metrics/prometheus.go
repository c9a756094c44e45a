package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Triage metrics
	patientsByCategory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "triage_patients_by_category",
			Help: "Patients in the latest roster snapshot per status category",
		},
		[]string{"category"},
	)

	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Total number of severity classifications computed",
		},
		[]string{"category"},
	)

	syncModesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_sync_modes_total",
			Help: "Total number of sync policy decisions per mode",
		},
		[]string{"mode"},
	)

	sectorsAtRisk = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_sectors_at_risk",
			Help: "Sectors with a predicted shortage in the latest snapshot",
		},
	)

	shortagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_shortages_predicted_total",
			Help: "Total number of shortage reports emitted",
		},
		[]string{"severity"},
	)

	rosterRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_roster_refreshes_total",
			Help: "Total number of roster snapshot refreshes",
		},
		[]string{"result"},
	)

	rosterRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_roster_refresh_duration_seconds",
			Help:    "Roster snapshot refresh duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Alert metrics
	alertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_raised_total",
			Help: "Total number of alerts raised",
		},
		[]string{"category"},
	)

	alertsEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_escalated_total",
			Help: "Total number of alert escalations",
		},
		[]string{"level"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "status"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordClassification records a severity classification
func RecordClassification(category string) {
	classificationsTotal.WithLabelValues(category).Inc()
}

// RecordSyncMode records a sync policy decision
func RecordSyncMode(mode string) {
	syncModesTotal.WithLabelValues(mode).Inc()
}

// SetPatientsByCategory records roster composition for one category
func SetPatientsByCategory(category string, count int) {
	patientsByCategory.WithLabelValues(category).Set(float64(count))
}

// SetSectorsAtRisk records the sector count of the latest shortage report
func SetSectorsAtRisk(count int) {
	sectorsAtRisk.Set(float64(count))
}

// RecordShortage records an emitted shortage report
func RecordShortage(severity string) {
	shortagesTotal.WithLabelValues(severity).Inc()
}

// RecordRosterRefresh records a roster refresh outcome
func RecordRosterRefresh(result string, duration time.Duration) {
	rosterRefreshes.WithLabelValues(result).Inc()
	rosterRefreshDuration.Observe(duration.Seconds())
}

// RecordAlertRaised records a raised alert
func RecordAlertRaised(category string) {
	alertsRaised.WithLabelValues(category).Inc()
}

// RecordAlertEscalated records an alert escalation
func RecordAlertEscalated(level int) {
	alertsEscalated.WithLabelValues(strconv.Itoa(level)).Inc()
}

// RecordNotification records a dispatched notification
func RecordNotification(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
