package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_ingested_total",
		Help: "Total number of raw listings accepted into a run",
	}, []string{"site"})

	ListingsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_rejected_total",
		Help: "Total number of raw listings rejected before resolution",
	}, []string{"reason"})

	MatchOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_outcomes_total",
		Help: "Resolver outcomes per listing",
	}, []string{"outcome"})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products created by the resolver",
	})

	PriceChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_changes_total",
		Help: "Total number of detected price changes",
	}, []string{"direction"})

	StockChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_changes_total",
		Help: "Total number of detected stock changes",
	}, []string{"change_type"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of change events published to the broker",
	}, []string{"type"})

	EventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_delivered_total",
		Help: "Total number of change events handed to the notifier",
	}, []string{"type"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "run_duration_seconds",
		Help:    "Duration of full pipeline runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
