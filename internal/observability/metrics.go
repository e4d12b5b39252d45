package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	CatalogCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_cache_total",
			Help: "Catalog result-set cache lookups by outcome",
		},
		[]string{"collection", "outcome"},
	)

	BookingsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_bookings_confirmed_total",
			Help: "Bookings written after a captured payment",
		},
	)

	PaymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_callbacks_total",
			Help: "Payment success notifications by source and result",
		},
		[]string{"source", "result"},
	)

	ReconcileAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_reconcile_attempts_total",
			Help: "Reconciliation attempts for captured payments without a booking",
		},
		[]string{"result"},
	)

	DBTxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_outbox_lag_seconds",
			Help: "Age of the oldest event published in the last batch",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, CatalogCache, BookingsConfirmed, PaymentCallbacks,
			ReconcileAttempts, DBTxDuration, OutboxLag, RateLimitExceeded)
	})
}
