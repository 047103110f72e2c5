package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "foodshare"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ListingsCreated  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "listings_created_total", Help: "Food listings created"})
	ListingsReserved = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "listings_reserved_total", Help: "Successful listing reservations"})
	ListingsExpired  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "listings_expired_total", Help: "Listings marked expired by the sweeper"})
	ReserveConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reserve_conflicts_total", Help: "Reservations rejected because the listing was no longer available"})

	DonationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "donation_transitions_total", Help: "Donation status changes"},
		[]string{"to"},
	)

	RealtimeClients  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "realtime_clients", Help: "Connected realtime subscribers"})
	RealtimeDropped  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "realtime_dropped_total", Help: "Realtime messages dropped on full buffers"})
	NotificationSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Listing notifications by sink and result"},
		[]string{"sink", "result"},
	)
)
