// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sink writes analysis scores to time-series storage.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/config"
)

// Measurement is the InfluxDB measurement name for analysis points.
const Measurement = "lens_analysis"

// InfluxSink records one point per analysis result.
//
// Description:
//
//	Each point is tagged with the bundle and file name and carries the raw
//	counts and quality scores as fields. Writes are blocking so failures
//	surface to the caller, which logs them.
//
// Thread Safety:
//
//	Safe for concurrent use. The underlying client is goroutine safe.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	logger *slog.Logger
}

// NewInfluxSink connects a sink using cfg.
func NewInfluxSink(cfg config.SinkConfig, logger *slog.Logger) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("influx url must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger: logger,
	}, nil
}

// Record writes r as one point. It satisfies analysis.Recorder.
func (s *InfluxSink) Record(ctx context.Context, r *analysis.Result) error {
	if err := s.writer.WritePoint(ctx, Point(r)); err != nil {
		return fmt.Errorf("writing influx point for %s: %w", r.ID, err)
	}
	s.logger.Debug("influx point written", slog.String("id", r.ID))
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// Point converts a result into an InfluxDB point.
func Point(r *analysis.Result) *write.Point {
	return influxdb2.NewPoint(Measurement,
		map[string]string{
			"bundle": r.BundleName,
			"file":   r.FileName,
		},
		map[string]interface{}{
			"functions":               r.Snapshot.FunctionCount,
			"variables":               r.Snapshot.VariableCount,
			"event_listeners":         r.Snapshot.EventListenerCount,
			"max_line":                r.Snapshot.MaxLine,
			"quality_functions":       r.Quality.Functions,
			"quality_variables":       r.Quality.Variables,
			"quality_event_listeners": r.Quality.EventListeners,
			"quality_maintainability": r.Quality.Maintainability,
			"quality_total":           r.Quality.Total,
			"classes":                 len(r.Structure.Classes),
			"result_id":               r.ID,
		},
		r.AnalyzedAt,
	)
}
