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
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
)

// subscriberBuffer is the per-subscriber channel capacity. Slow
// subscribers miss results rather than block publishing.
const subscriberBuffer = 8

var meter = otel.Meter("aleutian.lens.analysis")

// Recorder receives every successful Result after it becomes the latest.
// Recorder failures are logged and never undo the result.
type Recorder interface {
	Record(ctx context.Context, r *Result) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r *Result) error

// Record calls fn(ctx, r).
func (fn RecorderFunc) Record(ctx context.Context, r *Result) error { return fn(ctx, r) }

// Session owns the latest successful Result.
//
// Description:
//
//	Run replaces the latest result only when the whole analysis succeeds.
//	A failed run leaves the previous result and its subscribers untouched.
//	Each new result is pushed to subscribers and handed to recorders.
//
// Thread Safety:
//
//	Session is safe for concurrent use.
type Session struct {
	analyzer  *Analyzer
	recorders []Recorder
	logger    *slog.Logger

	mu     sync.RWMutex
	latest *Result
	subs   map[int]chan *Result
	nextID int

	published metric.Int64Counter
	failed    metric.Int64Counter
}

// NewSession returns a Session without a result.
func NewSession(a *Analyzer, logger *slog.Logger, recorders ...Recorder) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		analyzer:  a,
		recorders: recorders,
		logger:    logger,
		subs:      make(map[int]chan *Result),
	}

	var err error
	s.published, err = meter.Int64Counter("lens.session.results",
		metric.WithDescription("Results that became the latest session result"))
	if err != nil {
		logger.Warn("creating results counter", slog.String("error", err.Error()))
	}
	s.failed, err = meter.Int64Counter("lens.session.failures",
		metric.WithDescription("Analyses that failed and left the latest result unchanged"))
	if err != nil {
		logger.Warn("creating failures counter", slog.String("error", err.Error()))
	}
	return s
}

// Analyzer returns the session's analyzer.
func (s *Session) Analyzer() *Analyzer {
	return s.analyzer
}

// Run analyzes b and, on success, makes the result the latest.
//
// Outputs:
//
//	*Result - The new latest result.
//	error   - The analysis error. The previous result is kept.
func (s *Session) Run(ctx context.Context, b *bundle.Bundle) (*Result, error) {
	r, err := s.analyzer.Analyze(ctx, b)
	if err != nil {
		s.RecordFailure(ctx, err)
		return nil, err
	}
	s.Publish(ctx, r)
	return r, nil
}

// RunTree analyzes an already parsed tree and, on success, makes the
// result the latest.
func (s *Session) RunTree(ctx context.Context, name string, root *ast.Node) (*Result, error) {
	r, err := s.analyzer.AnalyzeTree(ctx, name, root)
	if err != nil {
		s.RecordFailure(ctx, err)
		return nil, err
	}
	s.Publish(ctx, r)
	return r, nil
}

// Publish installs r as the latest result and notifies subscribers and
// recorders.
func (s *Session) Publish(ctx context.Context, r *Result) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.latest = r
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
			s.logger.Debug("subscriber behind, dropping result", slog.String("id", r.ID))
		}
	}
	s.mu.Unlock()

	qualityTotal.Set(float64(r.Quality.Total))
	if s.published != nil {
		s.published.Add(ctx, 1)
	}

	for _, rec := range s.recorders {
		if err := rec.Record(ctx, r); err != nil {
			s.logger.Warn("recording result failed",
				slog.String("id", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Latest returns the latest result, or nil before the first success.
func (s *Session) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Subscribe registers for new results. The returned cancel function must
// be called to release the subscription; it closes the channel.
func (s *Session) Subscribe() (<-chan *Result, func()) {
	ch := make(chan *Result, subscriberBuffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// RecordFailure counts a failed analysis. Run calls it for pipeline
// errors; callers that fail earlier, while loading a bundle, call it
// themselves.
func (s *Session) RecordFailure(ctx context.Context, err error) {
	reason := statusError
	var perr *ast.ParseError
	var missing *bundle.MissingEntryError
	switch {
	case errors.As(err, &perr):
		reason = statusParseError
	case errors.As(err, &missing):
		reason = statusMissingEntry
		recordRun(reason, 0)
	}
	if s.failed == nil {
		return
	}
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
