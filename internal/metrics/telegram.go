package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCallsTotal,
		telegramRetriesTotal,
		telegramUpdatesTotal,
		telegramDroppedTotal,
		buildInfo,
	)
}

var (
	telegramCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_calls_total",
			Help: "Outbound Bot API calls by method and result.",
		},
		[]string{"method", "result"},
	)

	telegramRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_retries_total",
			Help: "Retried outbound Bot API calls by method.",
		},
		[]string{"method"},
	)

	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Inbound updates by kind.",
		},
		[]string{"kind"},
	)

	telegramDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_dropped_total",
			Help: "Inbound updates dropped by the rate limiter, by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A constant metric with labels for version and commit hash.",
		},
		[]string{"version", "commit"},
	)
)

// IncTelegramCall counts an outbound call with result "ok" or "fail".
func IncTelegramCall(method, result string) {
	telegramCallsTotal.WithLabelValues(norm(method), norm(result)).Inc()
}

// IncTelegramRetry counts one retry attempt.
func IncTelegramRetry(method string) {
	telegramRetriesTotal.WithLabelValues(norm(method)).Inc()
}

// IncTelegramUpdate counts an inbound update.
func IncTelegramUpdate(kind string) {
	telegramUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}

// IncTelegramDropped counts a rate-limited update.
func IncTelegramDropped(kind string) {
	telegramDroppedTotal.WithLabelValues(norm(kind)).Inc()
}

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}
