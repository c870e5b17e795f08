// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Analysis Pipeline
// =============================================================================

var (
	// analysesTotal counts analysis runs by outcome.
	// Labels: status (ok, parse_error, missing_entry, error)
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lens",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Total analysis runs by outcome",
	}, []string{"status"})

	// analysisDurationSeconds measures end-to-end analysis time by stage.
	// Labels: stage (parse, collect, extract, derive, diagram, total)
	analysisDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lens",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Analysis time by pipeline stage",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"stage"})

	// sourceBytes tracks the size of analyzed sources.
	sourceBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lens",
		Subsystem: "analysis",
		Name:      "source_bytes",
		Help:      "Size of analyzed JavaScript sources",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
	})

	// qualityTotal is the total quality score of the latest result.
	qualityTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lens",
		Subsystem: "session",
		Name:      "quality_total",
		Help:      "Total quality score of the latest successful analysis",
	})

	// snapshotOpsTotal counts snapshot store operations.
	// Labels: op (save, load, delete, prune), status (ok, error)
	snapshotOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lens",
		Subsystem: "snapshot",
		Name:      "ops_total",
		Help:      "Snapshot store operations by type and status",
	}, []string{"op", "status"})
)

// recordRun records the outcome of one analysis run.
func recordRun(status string, seconds float64) {
	analysesTotal.WithLabelValues(status).Inc()
	if status == statusOK {
		analysisDurationSeconds.WithLabelValues("total").Observe(seconds)
	}
}

// recordSnapshotOp records a snapshot store operation.
func recordSnapshotOp(op string, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	snapshotOpsTotal.WithLabelValues(op, status).Inc()
}

const (
	statusOK           = "ok"
	statusError        = "error"
	statusParseError   = "parse_error"
	statusMissingEntry = "missing_entry"
)
