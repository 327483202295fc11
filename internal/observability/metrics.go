package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersReceived = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "orders_received_total", Help: "Orders pushed over the realtime channel"})
	OrdersDropped  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "orders_dropped_total", Help: "Realtime frames dropped (duplicates, decode failures, logged out)"})
	OrdersAccepted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "orders_accepted_total", Help: "Orders accepted by this driver"})
	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "orders_rejected_total", Help: "Orders rejected locally (including claim conflicts)"})

	TokenRefreshes  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "token_refreshes_total", Help: "Successful access-token refreshes"})
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "delivery_driver", Name: "refresh_failures_total", Help: "Failed refresh attempts"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "delivery_driver", Name: "http_requests_total", Help: "Total HTTP requests handled by the control API"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery_driver",
			Name:      "http_request_duration_seconds",
			Help:      "Control API request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
