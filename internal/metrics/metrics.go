package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthOperations    *prometheus.CounterVec
	ReadFailures      *prometheus.CounterVec
	PaymentsInitiated *prometheus.CounterVec
	ActiveClients     prometheus.Gauge
	UpstreamRequests  *prometheus.CounterVec
}

// New initializes the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarta",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session provider operations by outcome.",
		}, []string{"operation", "result"}), // result: ok, error
		ReadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarta",
			Subsystem: "dashboard",
			Name:      "read_failures_total",
			Help:      "Read operations that failed and were replaced by an empty default.",
		}, []string{"operation"}),
		PaymentsInitiated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarta",
			Subsystem: "payments",
			Name:      "initiated_total",
			Help:      "Mobile-money payment initiations by outcome.",
		}, []string{"result"}),
		ActiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "smarta",
			Subsystem: "auth",
			Name:      "active_clients",
			Help:      "Client instances with a live session provider.",
		}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smarta",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests made to the managed backend by service and HTTP status class.",
		}, []string{"service", "status"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveAuth counts a session provider operation.
func (m *Metrics) ObserveAuth(operation string, err error) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveReadFailure counts a read swallowed into an empty default.
func (m *Metrics) ObserveReadFailure(operation string) {
	if m == nil {
		return
	}
	m.ReadFailures.WithLabelValues(operation).Inc()
}

// ObservePayment counts a payment initiation.
func (m *Metrics) ObservePayment(err error) {
	if m == nil {
		return
	}
	m.PaymentsInitiated.WithLabelValues(result(err)).Inc()
}

// SetActiveClients reports the number of registered client instances.
func (m *Metrics) SetActiveClients(n int) {
	if m == nil {
		return
	}
	m.ActiveClients.Set(float64(n))
}

// ObserveUpstream counts a backend request; status is an HTTP status class such as "2xx".
func (m *Metrics) ObserveUpstream(service, status string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(service, status).Inc()
}
