package devnet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	AcceptedTotal     prometheus.Counter
	RejectedTotal     *prometheus.CounterVec
	BlockHeight       prometheus.Gauge
	MempoolSize       prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devnet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devnet_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AcceptedTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "devnet_transactions_accepted_total",
				Help: "Transactions accepted into the mempool",
			},
		),
		RejectedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devnet_transactions_rejected_total",
				Help: "Transactions refused by POST /tx",
			},
			[]string{"reason"},
		),
		BlockHeight: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "devnet_block_height",
				Help: "Current block height",
			},
		),
		MempoolSize: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "devnet_mempool_transactions",
				Help: "Transactions waiting for the next block",
			},
		),
	}
}
