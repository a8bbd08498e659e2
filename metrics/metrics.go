////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package metrics holds the prometheus counters of the chat core. They are
// registered with the default registry and served by the CLI when a metrics
// address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesIngested counts inbound messages handed to a store, by target
	// kind.
	MessagesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_messages_ingested_total",
			Help: "Inbound messages delivered into a message store.",
		},
		[]string{"kind"},
	)

	// StanzasDropped counts inbound stanzas the pipeline discarded, by reason.
	StanzasDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_stanzas_dropped_total",
			Help: "Inbound stanzas dropped by the ingestion pipeline.",
		},
		[]string{"reason"},
	)

	// ActivePipelines tracks running ingestion pipelines.
	ActivePipelines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskchat_active_pipelines",
			Help: "Number of running ingestion pipelines.",
		},
	)

	// MessagesMarkedRead counts messages the read tracker marked read.
	MessagesMarkedRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_messages_marked_read_total",
			Help: "Messages marked read after the visibility debounce.",
		},
	)

	// ReadBatchesDiscarded counts pending batches dropped because the
	// displayed target changed before the debounce fired.
	ReadBatchesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_read_batches_discarded_total",
			Help: "Pending read batches discarded after a target switch.",
		},
	)

	// HistoryRecordsSkipped counts malformed history records skipped on
	// replay.
	HistoryRecordsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_history_records_skipped_total",
			Help: "Malformed history records skipped during replay.",
		},
	)

	// HistoryWriteErrors counts failed history appends.
	HistoryWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_history_write_errors_total",
			Help: "History appends that failed to reach disk.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesIngested,
		StanzasDropped,
		ActivePipelines,
		MessagesMarkedRead,
		ReadBatchesDiscarded,
		HistoryRecordsSkipped,
		HistoryWriteErrors,
	)
}

// Handler returns the HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
