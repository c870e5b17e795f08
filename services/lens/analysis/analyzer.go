// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis runs the Lens pipeline and owns its results.
//
// The pipeline turns a bundle into a Result: parse, collect metrics,
// extract structure, derive scores, build diagrams. A Session holds the
// latest successful Result, and a SnapshotStore keeps a history of them.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

var tracer = otel.Tracer("aleutian.lens.analysis")

// Parser turns source into a syntax tree.
//
// Implementations return *ast.ParseError for malformed source.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*ast.Node, error)
}

// Analyzer runs the analysis pipeline.
//
// Description:
//
//	Each stage is a pure function of the previous stage's output. The
//	metric collector and the structure extractor walk the tree
//	independently. Nothing is returned unless every stage succeeds.
//
// Thread Safety:
//
//	Analyzer is immutable after construction and safe for concurrent use,
//	provided the Parser is.
type Analyzer struct {
	parser  Parser
	scoring metrics.ScoreConfig
	limits  diagram.Limits
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithParser sets the parser. Default: ast.NewJavaScriptParser().
func WithParser(p Parser) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.parser = p
		}
	}
}

// WithScoring sets the quality score constants.
func WithScoring(cfg metrics.ScoreConfig) Option {
	return func(a *Analyzer) { a.scoring = cfg }
}

// WithLimits sets the diagram drawing limits.
func WithLimits(l diagram.Limits) Option {
	return func(a *Analyzer) { a.limits = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the time source used for AnalyzedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer returns an Analyzer.
//
// Outputs:
//
//	*Analyzer - The configured analyzer.
//	error     - Non-nil if the scoring constants are invalid.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		parser:  ast.NewJavaScriptParser(),
		scoring: metrics.DefaultScoreConfig(),
		limits:  diagram.DefaultLimits(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.scoring.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	return a, nil
}

// Analyze parses the bundle's source and runs the full pipeline.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	b   - The loaded bundle. Must not be nil.
//
// Outputs:
//
//	*Result - The complete result.
//	error   - *ast.ParseError (wrapped) for malformed source, ctx.Err()
//	          when cancelled before parsing.
func (a *Analyzer) Analyze(ctx context.Context, b *bundle.Bundle) (*Result, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle must not be nil")
	}
	ctx, span := tracer.Start(ctx, "Analyzer.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("bundle", b.Name),
		attribute.String("file", b.SourceName),
		attribute.Int("source_bytes", len(b.Source)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	root, err := a.parser.Parse(ctx, b.Source, b.SourceName)
	analysisDurationSeconds.WithLabelValues("parse").Observe(time.Since(start).Seconds())
	if err != nil {
		status := statusError
		var perr *ast.ParseError
		if errors.As(err, &perr) {
			status = statusParseError
		}
		recordRun(status, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		a.logger.Warn("analysis failed",
			slog.String("bundle", b.Name),
			slog.String("file", b.SourceName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("analyze %s: %w", b.SourceName, err)
	}
	sourceBytes.Observe(float64(len(b.Source)))

	r := a.run(ctx, b.SourceName, root, start)
	r.BundleName = b.Name
	r.SourceHash = b.SourceHash()
	if b.HasProvided() {
		r.ProvidedAnalysis = string(b.Provided)
	}
	return r, nil
}

// AnalyzeTree runs the pipeline on an already parsed tree, such as one
// decoded from ESTree JSON.
func (a *Analyzer) AnalyzeTree(ctx context.Context, name string, root *ast.Node) (*Result, error) {
	if root == nil {
		return nil, ast.ErrEmptyTree
	}
	ctx, span := tracer.Start(ctx, "Analyzer.AnalyzeTree")
	defer span.End()
	span.SetAttributes(attribute.String("file", name))

	r := a.run(ctx, name, root, time.Now())
	r.BundleName = name
	return r, nil
}

// run executes the post-parse stages. They cannot fail.
func (a *Analyzer) run(ctx context.Context, name string, root *ast.Node, start time.Time) *Result {
	_, span := tracer.Start(ctx, "Analyzer.run")
	defer span.End()

	stage := time.Now()
	snap := metrics.Collect(root)
	analysisDurationSeconds.WithLabelValues("collect").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	model := structure.Extract(root, structure.WithLogger(a.logger))
	analysisDurationSeconds.WithLabelValues("extract").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	extended := metrics.Derive(snap)
	quality := metrics.Score(snap, a.scoring)
	analysisDurationSeconds.WithLabelValues("derive").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	diagrams := diagram.Build(model, a.limits)
	analysisDurationSeconds.WithLabelValues("diagram").Observe(time.Since(stage).Seconds())

	elapsed := time.Since(start)
	recordRun(statusOK, elapsed.Seconds())

	span.SetAttributes(
		attribute.Int("functions", snap.FunctionCount),
		attribute.Int("variables", snap.VariableCount),
		attribute.Int("event_listeners", snap.EventListenerCount),
		attribute.Int("classes", len(model.Classes)),
		attribute.Int("quality_total", quality.Total),
	)
	a.logger.Info("analysis complete",
		slog.String("file", name),
		slog.Int("functions", snap.FunctionCount),
		slog.Int("variables", snap.VariableCount),
		slog.Int("event_listeners", snap.EventListenerCount),
		slog.Int("quality_total", quality.Total),
		slog.Duration("elapsed", elapsed),
	)

	return &Result{
		SchemaVersion: ResultSchemaVersion,
		ID:            uuid.NewString(),
		FileName:      name,
		AnalyzedAt:    a.now().UTC(),
		DurationMilli: elapsed.Milliseconds(),
		Snapshot:      snap,
		Extended:      extended,
		Quality:       quality,
		Structure:     model,
		Diagrams:      diagrams,
		Tree:          root,
	}
}
