package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		menuCallbacksTotal,
		menuEditsTotal,
		onboardingTransitionsTotal,
	)
}

var (
	menuCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_callbacks_total",
			Help: "Menu button presses by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	menuEditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_edits_total",
			Help: "Pending-edit lifecycle events by setting and stage (opened, resolved, rejected, cancelled).",
		},
		[]string{"setting", "stage"},
	)

	onboardingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_transitions_total",
			Help: "Bot membership transitions handled, by kind (added, promoted, ignored).",
		},
		[]string{"kind"},
	)
)

// IncMenuCallback counts one handled button press.
func IncMenuCallback(action, outcome string) {
	menuCallbacksTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

// IncMenuEdit counts a pending-edit lifecycle step.
func IncMenuEdit(setting, stage string) {
	menuEditsTotal.WithLabelValues(norm(setting), norm(stage)).Inc()
}

// IncOnboarding counts a bot membership transition.
func IncOnboarding(kind string) {
	onboardingTransitionsTotal.WithLabelValues(norm(kind)).Inc()
}
