package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "labdesk"

var (
	once sync.Once

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls to the record service by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Approve/reject actions by request kind, action and result.",
		},
		[]string{"kind", "action", "result"},
	)

	dashboardLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_loads_total",
			Help:      "Full dashboard reloads by result.",
		},
		[]string{"result"},
	)

	utilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lab_utilization_percent",
			Help:      "Share of lab seats with an active booking right now.",
		},
		[]string{"lab"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(remoteCalls, decisions, dashboardLoads, utilization)
	})
}

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

func IncRemoteCall(endpoint, result string) {
	remoteCalls.WithLabelValues(endpoint, result).Inc()
}

func IncDecision(kind, action, result string) {
	decisions.WithLabelValues(kind, action, result).Inc()
}

func IncDashboardLoad(result string) {
	dashboardLoads.WithLabelValues(result).Inc()
}

func SetUtilization(lab string, percent float64) {
	utilization.WithLabelValues(lab).Set(percent)
}
