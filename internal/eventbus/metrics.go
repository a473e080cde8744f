package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gohome",
		Name:      "bus_events_received_total",
		Help:      "MQTT events received by the core, by topic.",
	}, []string{"topic"})
	metricEventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gohome",
		Name:      "bus_events_rejected_total",
		Help:      "MQTT events dropped because their payload did not decode.",
	})
	metricCapabilityChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gohome",
		Name:      "capability_changes_total",
		Help:      "Capability values changed by scanner readings.",
	})
	metricUnknownReadings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gohome",
		Name:      "readings_unregistered_total",
		Help:      "Scanner readings for addresses with no registered device.",
	})
)

func recordEvent(topic string) {
	metricEventsReceived.WithLabelValues(topic).Inc()
}

func recordRejected() {
	metricEventsRejected.Inc()
}

func recordChanges(count int) {
	if count > 0 {
		metricCapabilityChanges.Add(float64(count))
	}
}

func recordUnknownReading() {
	metricUnknownReadings.Inc()
}
