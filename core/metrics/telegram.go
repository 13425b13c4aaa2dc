package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		telegramUpdatesTotal,
		telegramRateLimitedTotal,
		telegramHandlerLatencyMs,
		telegramSendTotal,
	)
}

var (
	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Updates routed to handlers, by handler and outcome.",
		},
		[]string{"handler", "outcome"},
	)

	telegramRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramHandlerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telegram_handler_latency_ms",
			Help:    "Handler latency distribution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"handler"},
	)

	telegramSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_effects_total",
			Help: "Outbound effects executed against the Bot API, by kind and success.",
		},
		[]string{"kind", "success"},
	)
)

func ObserveUpdate(handler, outcome string, latencyMs int64) {
	h := norm(handler)
	if h == "" {
		h = "unknown"
	}
	telegramUpdatesTotal.WithLabelValues(h, norm(outcome)).Inc()
	telegramHandlerLatencyMs.WithLabelValues(h).Observe(float64(latencyMs))
}

func IncRateLimited() {
	telegramRateLimitedTotal.Inc()
}

func IncEffect(kind string, success bool) {
	telegramSendTotal.WithLabelValues(norm(kind), strconv.FormatBool(success)).Inc()
}
