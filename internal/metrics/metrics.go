package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_events_total",
			Help: "Total number of price update events consumed",
		},
		[]string{"status"}, // status: processed, failed
	)

	EventHandleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_event_handle_duration_seconds",
			Help:    "Time taken to evaluate one price update event",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	EventSymbols = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_event_symbols",
			Help:    "Number of symbols carried per price update event",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Evaluation metrics
	RulesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_rules_evaluated_total",
			Help: "Total number of alert rules run through the evaluator",
		},
	)

	Claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_claims_total",
			Help: "Trigger claim attempts by result",
		},
		[]string{"result"}, // result: won, lost, error
	)

	Triggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_triggers_total",
			Help: "Claimed triggers by pipeline outcome",
		},
		[]string{"outcome"}, // outcome: fired, fired_unlogged, fired_undelivered
	)

	// Delivery metrics
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "Notification delivery attempts by channel and status",
		},
		[]string{"channel", "status"}, // channel: email, in_app; status: sent, suppressed, failed
	)
)
