// Package metrics holds the Prometheus collectors for the ingestion
// pipeline. Everything is registered on the default registry and served by
// promhttp in the process main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrotech_messages_received_total",
		Help: "Inbound messages delivered to the resolver, by transport.",
	}, []string{"protocol"})

	MessagesUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrotech_messages_unmatched_total",
		Help: "Messages whose topic resolved to no sensor (expected noise).",
	})

	ReadingsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrotech_readings_persisted_total",
		Help: "Readings written to the reading store.",
	})

	DecodeMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrotech_decode_misses_total",
		Help: "Payloads a candidate sensor could not extract a value from.",
	})

	WatchdogDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrotech_watchdog_disconnects_total",
		Help: "Sensors flipped to Disconnected by the periodic sweep.",
	})

	CommandsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrotech_actuator_commands_total",
		Help: "Actuator commands published by the automation engine.",
	}, []string{"command"})
)
