package influxdb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPointsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gohome",
		Subsystem: "history",
		Name:      "points_written_total",
		Help:      "Capability values queued for InfluxDB, by capability.",
	}, []string{"capability"})
	metricWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gohome",
		Subsystem: "history",
		Name:      "write_errors_total",
		Help:      "Asynchronous InfluxDB batch write failures.",
	})
)
