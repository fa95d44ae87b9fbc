package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricPrefix = "lxcloud_"

var (
	IngestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "ingest_total",
		Help: "Device updates processed, by outcome",
	}, []string{"outcome"})

	TelemetryWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "telemetry_records_written_total",
		Help: "Telemetry records persisted for claimed screens",
	})

	BroadcastPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "broadcast_events_published_total",
		Help: "Live-update events handed to subscribers",
	})

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "broadcast_events_dropped_total",
		Help: "Live-update events dropped because a subscriber was slow",
	})

	SweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "sweep_telemetry_deleted_total",
		Help: "Telemetry records removed by the retention sweep",
	})

	SweepMarkedOffline = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "sweep_marked_offline_total",
		Help: "Devices flipped offline by the liveness sweep",
	})
)
