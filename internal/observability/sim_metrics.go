package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Simulation backend metrics, kept in their own namespace so an agent and
// a simserver scraped by the same Prometheus stay distinguishable.
var (
	SimOrdersPushed     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_sim", Name: "orders_pushed_total", Help: "Orders fanned out to connected drivers"})
	SimClaimsWon        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_sim", Name: "claims_won_total", Help: "Accept calls that won the claim"})
	SimClaimsLost       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_sim", Name: "claims_lost_total", Help: "Accept calls that lost to another driver"})
	SimDriversConnected = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "delivery_sim", Name: "drivers_connected", Help: "Currently connected driver channels"})

	SimHTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "delivery_sim", Name: "http_requests_total", Help: "HTTP requests served by the sim backend"},
		[]string{"method", "route", "status"},
	)
)
