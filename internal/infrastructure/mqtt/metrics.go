package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gohome",
		Subsystem: "mqtt",
		Name:      "connected",
		Help:      "1 while the core is connected to the broker.",
	})
	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gohome",
		Subsystem: "mqtt",
		Name:      "reconnects_total",
		Help:      "Broker reconnections after a lost connection.",
	})
	metricHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gohome",
		Subsystem: "mqtt",
		Name:      "handler_failures_total",
		Help:      "Messages whose handler returned an error or panicked, by subscription filter.",
	}, []string{"filter"})
)
