package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations counts alert service calls by operation and outcome
	// (ok, not_found, forbidden, invalid, error).
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_operations_total",
		Help: "Alert service operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// Notifications counts outbound notification attempts by kind
	// (email, chat, push) and outcome (ok, error, skipped).
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_notifications_total",
		Help: "Outbound notification attempts by kind and outcome.",
	}, []string{"kind", "outcome"})
)
