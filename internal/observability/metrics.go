package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	Writes           *prometheus.CounterVec // labels: entity={gauge,record}, op={create,delete}, outcome={ok,error}
	LiveUpdates      *prometheus.CounterVec // labels: collection
	ConnectionErrors *prometheus.CounterVec // labels: source={gauges,records,probe}
	Backend          *prometheus.GaugeVec   // labels: kind={remote,local}
	HTTPRequests     *prometheus.CounterVec // labels: route, status
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrorain",
			Name:      "store_writes_total",
			Help:      "Store writes by entity, operation and outcome.",
		}, []string{"entity", "op", "outcome"}),
		LiveUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrorain",
			Name:      "live_updates_total",
			Help:      "Full-collection snapshots delivered by store subscriptions.",
		}, []string{"collection"}),
		ConnectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrorain",
			Name:      "connection_errors_total",
			Help:      "Subscription and probe failures against the active backend.",
		}, []string{"source"}),
		Backend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agrorain",
			Name:      "backend_active",
			Help:      "1 for the persistence backend selected at startup.",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrorain",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Writes,
			m.LiveUpdates,
			m.ConnectionErrors,
			m.Backend,
			m.HTTPRequests,
		)
	}

	return m
}
