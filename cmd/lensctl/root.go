// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
	"github.com/AleutianAI/AleutianLens/services/lens/config"
)

const cliVersion = "0.3.0"

// Flag names for persistent global flags.
const (
	flagConfig = "config"
	flagDebug  = "debug"
)

// cli carries the state shared by all subcommands.
type cli struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

// newRootCmd creates the lensctl root command.
//
// Subcommands:
//   - analyze: Analyze bundles and print metrics
//   - diagram: Print Mermaid diagrams
//   - watch: Re-analyze a file whenever it changes
//   - snapshots: Inspect the snapshot store
//   - browse: Interactive result browser
//
// Global Flags:
//   - --config: Path to lens.config.yaml
//   - --debug: Verbose logging
func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           "lensctl",
		Short:         "Structural analysis for JavaScript bundles",
		Version:       cliVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, flagConfig, "", "Path to lens.config.yaml (default: $LENS_CONFIG or ./lens.config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.debug, flagDebug, false, "Enable debug logging")

	cmd.AddCommand(newAnalyzeCmd(c))
	cmd.AddCommand(newDiagramCmd(c))
	cmd.AddCommand(newWatchCmd(c))
	cmd.AddCommand(newSnapshotsCmd(c))
	cmd.AddCommand(newBrowseCmd(c))

	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, optional := config.ResolvePath(c.configPath)
	cfg, err := config.LoadFile(ctx, path, optional)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// openBundle reads a bundle from a local path, a gs:// URI, or stdin ("-").
func (c *cli) openBundle(ctx context.Context, r *bundle.Reader, in io.Reader, arg string) (*bundle.Bundle, error) {
	switch {
	case bundle.IsGCS(arg):
		return r.OpenGCS(ctx, arg)
	case arg == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return r.FromBytes("stdin.js", data)
	default:
		return r.Open(arg)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// analyzeOne opens and analyzes a single argument.
func (c *cli) analyzeOne(ctx context.Context, cmd *cobra.Command, s *analysis.Session, r *bundle.Reader, arg string) (*analysis.Result, error) {
	b, err := c.openBundle(ctx, r, cmd.InOrStdin(), arg)
	if err != nil {
		s.RecordFailure(ctx, err)
		return nil, err
	}
	return s.Run(ctx, b)
}
