package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		formEventsTotal,
		formRejectionsTotal,
		formTransitionsTotal,
		formCompletedTotal,
		formCancelledTotal,
		formErrorsTotal,
	)
}

var (
	formEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_events_total",
			Help: "Inbound events handled by the conversation engine, by kind and state.",
		},
		[]string{"kind", "state"},
	)

	formRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_rejections_total",
			Help: "Answers rejected by a state's input predicate.",
		},
		[]string{"state"},
	)

	formTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_transitions_total",
			Help: "State transitions taken, by source and destination.",
		},
		[]string{"from", "to"},
	)

	formCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "form_completed_total",
			Help: "Questionnaires finalized into a stored profile.",
		},
	)

	formCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "form_cancelled_total",
			Help: "Cancel commands received while a session existed.",
		},
	)

	formErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_errors_total",
			Help: "Engine failures by cause (invariant, storage).",
		},
		[]string{"cause"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncEvent(kind, state string) {
	formEventsTotal.WithLabelValues(norm(kind), norm(state)).Inc()
}

func IncRejection(state string) {
	formRejectionsTotal.WithLabelValues(norm(state)).Inc()
}

func IncTransition(from, to string) {
	formTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncCompleted() {
	formCompletedTotal.Inc()
}

func IncCancelled() {
	formCancelledTotal.Inc()
}

func IncError(cause string) {
	formErrorsTotal.WithLabelValues(norm(cause)).Inc()
}
