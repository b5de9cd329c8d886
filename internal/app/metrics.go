package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event pipeline metrics
	metricEventsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_events_normalized_total",
			Help: "Total number of canonical events produced per source",
		},
		[]string{"source"},
	)

	metricParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_parse_failures_total",
			Help: "Total number of messages dropped due to parse failures",
		},
		[]string{"source"},
	)

	metricDuplicatesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_duplicates_suppressed_total",
			Help: "Total number of alerts suppressed as duplicates",
		},
		[]string{"source"},
	)

	// Alert metrics
	metricAlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_alerts_sent_total",
			Help: "Total number of whale alerts dispatched",
		},
		[]string{"source", "category"},
	)

	// Connection metrics
	metricReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalewatch_reconnect_attempts_total",
			Help: "Total number of reconnect attempts per source",
		},
		[]string{"source"},
	)

	metricPollFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whalewatch_poll_failures_total",
			Help: "Total number of failed bitcoin poll ticks",
		},
	)
)
