package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/bankledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerOperations      *prometheus.CounterVec
	LedgerDuration        *prometheus.HistogramVec
	LedgerConflictRetries prometheus.Counter

	// Audit metrics
	AuditEntries *prometheus.CounterVec
	AuditQueue   prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_operations_total",
				Help: "Total ledger operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LedgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LedgerConflictRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_conflict_retries_total",
			Help: "Total retries caused by concurrency conflicts",
		}),

		// Audit metrics
		AuditEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_audit_entries_total",
				Help: "Audit entries by delivery result",
			},
			[]string{"result"},
		),
		AuditQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_audit_queue_depth",
			Help: "Audit entries waiting to be written",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
}

// ObserveOperation records one ledger call. Outcome is "success" or the
// error kind.
func (m *Metrics) ObserveOperation(op domain.OperationType, kind domain.ErrorKind, duration time.Duration) {
	outcome := "success"
	if kind != domain.KindNone {
		outcome = string(kind)
	}

	m.LedgerOperations.WithLabelValues(string(op), outcome).Inc()
	m.LedgerDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
}

// ConflictRetry counts one retry of a conflicting operation.
func (m *Metrics) ConflictRetry() {
	m.LedgerConflictRetries.Inc()
}

func (m *Metrics) AuditResult(result string) {
	m.AuditEntries.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditQueueDepth(depth int) {
	m.AuditQueue.Set(float64(depth))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RequestStarted()  { m.HTTPInFlight.Inc() }
func (m *Metrics) RequestFinished() { m.HTTPInFlight.Dec() }
