package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	serverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netbank",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total wire requests handled.",
		},
		[]string{"server", "kind", "ok"},
	)
	serverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netbank",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Wire request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "kind"},
	)
	serverConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netbank",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Connections currently owned by a worker.",
		},
		[]string{"server"},
	)
	poolTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netbank",
			Subsystem: "pool",
			Name:      "tasks_total",
			Help:      "Tasks completed by worker pools.",
		},
		[]string{"pool"},
	)
	adminRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netbank",
			Subsystem: "admin_http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(serverRequests, serverDuration, serverConnections, poolTasks, adminRequests)
	})
}

func RecordRequest(server, kind string, ok bool, duration time.Duration) {
	RegisterMetrics()
	serverRequests.WithLabelValues(server, kind, strconv.FormatBool(ok)).Inc()
	serverDuration.WithLabelValues(server, kind).Observe(duration.Seconds())
}

func ConnectionOpened(server string) {
	RegisterMetrics()
	serverConnections.WithLabelValues(server).Inc()
}

func ConnectionClosed(server string) {
	RegisterMetrics()
	serverConnections.WithLabelValues(server).Dec()
}

func RecordPoolTask(pool string) {
	RegisterMetrics()
	poolTasks.WithLabelValues(pool).Inc()
}

func RecordAdminRequest(server, method, path string, status int) {
	RegisterMetrics()
	adminRequests.WithLabelValues(server, method, path, strconv.Itoa(status)).Inc()
}
