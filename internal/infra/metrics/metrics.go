// internal/infra/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
)

var (
	registerOnce sync.Once

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proofofclick",
			Name:      "operations_total",
			Help:      "Engine operations by terminal outcome.",
		},
		[]string{"op", "outcome"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "proofofclick",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proofofclick",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "proofofclick",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(operations, operationDuration, httpRequests, httpDuration)
	})
}

// Handler は /metrics 用のハンドラです。
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	Register()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// Observer はエンジンの結果を prometheus に記録します。
type Observer struct{}

var _ clickdom.Observer = Observer{}

func (Observer) ObserveOperation(op clickdom.Operation, outcome clickdom.Outcome, elapsed time.Duration) {
	Register()
	operations.WithLabelValues(string(op), string(outcome)).Inc()
	operationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}
