// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package app assembles the analysis runtime from configuration. It is
// shared by the server and the command line tool.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
	"github.com/AleutianAI/AleutianLens/services/lens/config"
	"github.com/AleutianAI/AleutianLens/services/lens/sink"
)

// Options selects the optional parts of a Runtime.
type Options struct {
	// Snapshots opens the badger snapshot store and records every result.
	Snapshots bool

	// Sink attaches the InfluxDB sink when the config enables it.
	Sink bool
}

// Runtime is a configured analysis pipeline with its attached stores.
//
// Thread Safety:
//
//	All exported fields are safe for concurrent use. Close must be called
//	once, after all use.
type Runtime struct {
	Config   *config.Config
	Reader   *bundle.Reader
	Analyzer *analysis.Analyzer
	Session  *analysis.Session

	// Store is nil when snapshots were not requested or the database could
	// not be opened.
	Store *analysis.SnapshotStore

	db     *badger.DB
	sink   *sink.InfluxSink
	logger *slog.Logger
}

// NewAnalyzer builds an Analyzer with the configured parser, scoring and
// diagram limits.
func NewAnalyzer(cfg *config.Config, logger *slog.Logger) (*analysis.Analyzer, error) {
	parser := ast.NewJavaScriptParser(
		ast.WithJSMaxFileSize(cfg.Parser.MaxFileSize),
		ast.WithJSAllowSyntaxErrors(cfg.Parser.AllowSyntaxErrors),
	)
	return analysis.NewAnalyzer(
		analysis.WithParser(parser),
		analysis.WithScoring(cfg.Scoring),
		analysis.WithLimits(cfg.Diagram),
		analysis.WithLogger(logger),
	)
}

// OpenDB opens the snapshot database described by cfg.
func OpenDB(cfg config.StorageConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.SnapshotDir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if err := os.MkdirAll(cfg.SnapshotDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", cfg.SnapshotDir, err)
	}
	return db, nil
}

// New assembles a Runtime.
//
// Description:
//
//	The analyzer and session are always created. The snapshot store and
//	the InfluxDB sink degrade gracefully: if either cannot be set up a
//	warning is logged and the runtime continues without it.
//
// Outputs:
//
//	*Runtime - The runtime. Close it when done.
//	error    - Non-nil only if the analyzer cannot be built.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	analyzer, err := NewAnalyzer(cfg, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Reader:   bundle.NewReader(cfg.Bundle, logger),
		Analyzer: analyzer,
		logger:   logger,
	}

	var recorders []analysis.Recorder
	if opts.Snapshots {
		db, err := OpenDB(cfg.Storage)
		if err != nil {
			logger.Warn("Snapshot BadgerDB unavailable, snapshot history disabled",
				slog.String("path", cfg.Storage.SnapshotDir),
				slog.String("error", err.Error()),
			)
		} else if store, err := analysis.NewSnapshotStore(db, logger, cfg.Storage.MaxSnapshots); err != nil {
			_ = db.Close()
			return nil, err
		} else {
			rt.db, rt.Store = db, store
			recorders = append(recorders, store)
			logger.Info("Snapshot BadgerDB opened",
				slog.String("path", cfg.Storage.SnapshotDir),
				slog.Bool("in_memory", cfg.Storage.InMemory),
			)
		}
	}

	if opts.Sink && cfg.Sink.Enabled {
		s, err := sink.NewInfluxSink(cfg.Sink, logger)
		if err != nil {
			logger.Warn("InfluxDB sink unavailable", slog.String("error", err.Error()))
		} else {
			rt.sink = s
			recorders = append(recorders, s)
		}
	}

	rt.Session = analysis.NewSession(analyzer, logger, recorders...)
	return rt, nil
}

// Close releases the database and the sink.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.sink != nil {
		rt.sink.Close()
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing snapshot db: %w", err))
		}
	}
	return errors.Join(errs...)
}
