// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	paymentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "PIX charges successfully created per tenant.",
		},
		[]string{"tenant"},
	)

	paymentsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_finalized_total",
			Help: "Payments that reached a terminal provider status per tenant.",
		},
		[]string{"tenant", "status"},
	)

	grantsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grants_issued_total",
			Help: "Access grants delivered per tenant and offering type.",
		},
		[]string{"tenant", "type"},
	)

	gatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Payment gateway call failures per tenant and operation.",
		},
		[]string{"tenant", "op"},
	)

	tenantsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenants_running",
			Help: "Number of tenant bot instances currently running.",
		},
	)

	eventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_handled_total",
			Help: "Inbound conversation events handled per tenant and kind.",
		},
		[]string{"tenant", "kind"},
	)
)

// Register registers all collectors exactly once.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(
			paymentsCreated,
			paymentsFinalized,
			grantsIssued,
			gatewayErrors,
			tenantsRunning,
			eventsHandled,
		)
	})
}

func tenantLabel(id int64) string { return strconv.FormatInt(id, 10) }

func IncPaymentCreated(tenantID int64) {
	paymentsCreated.WithLabelValues(tenantLabel(tenantID)).Inc()
}

func IncPaymentFinalized(tenantID int64, status string) {
	paymentsFinalized.WithLabelValues(tenantLabel(tenantID), status).Inc()
}

func IncGrantIssued(tenantID int64, offeringType string) {
	grantsIssued.WithLabelValues(tenantLabel(tenantID), offeringType).Inc()
}

func IncGatewayError(tenantID int64, op string) {
	gatewayErrors.WithLabelValues(tenantLabel(tenantID), op).Inc()
}

func SetTenantsRunning(n int) { tenantsRunning.Set(float64(n)) }

func IncEventHandled(tenantID int64, kind string) {
	eventsHandled.WithLabelValues(tenantLabel(tenantID), kind).Inc()
}
