package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the pet recorders.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tamactl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tamactl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	petRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tamactl",
			Subsystem: "pet",
			Name:      "requests_total",
			Help:      "Pet requests handled, by request kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	petSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tamactl",
			Subsystem: "pet",
			Name:      "signals_total",
			Help:      "Signals delivered to the pet, by result.",
		},
		[]string{"result"},
	)
	petReservations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tamactl",
			Subsystem: "pet",
			Name:      "reservations",
			Help:      "Gas reservations currently held by a pet program.",
		},
		[]string{"program"},
	)
	externalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tamactl",
			Subsystem: "pet",
			Name:      "external_call_duration_seconds",
			Help:      "Duration of request/reply calls to collaborator actors.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			petRequests,
			petSignals,
			petReservations,
			externalCallDuration,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordPetRequest(kind, outcome string) {
	RegisterMetrics()
	petRequests.WithLabelValues(kind, outcome).Inc()
}

func RecordSignal(result string) {
	RegisterMetrics()
	petSignals.WithLabelValues(result).Inc()
}

func SetReservations(program string, count int) {
	RegisterMetrics()
	petReservations.WithLabelValues(program).Set(float64(count))
}

func RecordExternalCall(target, outcome string, duration time.Duration) {
	RegisterMetrics()
	externalCallDuration.WithLabelValues(target, outcome).Observe(duration.Seconds())
}
