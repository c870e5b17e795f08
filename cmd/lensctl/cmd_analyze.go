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
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/app"
)

// analyzeOutcome is one argument's result or error, in argument order.
type analyzeOutcome struct {
	Arg    string           `json:"arg"`
	Result *analysis.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		asJSON      bool
		verbose     bool
		save        bool
		toSink      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze <bundle.zip|file.js|gs://bucket/object|->...",
		Short: "Analyze bundles and print metrics",
		Long: `Analyze one or more bundles concurrently. Zip archives are detected by
content; any other file is analyzed as a bare JavaScript source. "-" reads
from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.New(c.cfg, c.logger, app.Options{Snapshots: save, Sink: toSink})
			if err != nil {
				return err
			}
			defer rt.Close()

			outcomes := analyzeAll(cmd.Context(), c, cmd, rt, args, concurrency)

			failed := 0
			for _, o := range outcomes {
				if o.Error != "" {
					failed++
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcomes); err != nil {
					return err
				}
			} else {
				st := newStyles(isTerminal(out))
				for i, o := range outcomes {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if o.Error != "" {
						fmt.Fprintln(out, st.err.Render(o.Arg+": "+o.Error))
						continue
					}
					fmt.Fprint(out, renderSummary(st, o.Result))
					if verbose {
						fmt.Fprintln(out)
						fmt.Fprint(out, renderMetrics(st, o.Result))
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d bundles failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print quality breakdown and extended metrics")
	cmd.Flags().BoolVar(&save, "save", false, "Record results in the snapshot store")
	cmd.Flags().BoolVar(&toSink, "sink", false, "Write scores to InfluxDB when enabled in config")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", runtime.NumCPU(), "Bundles analyzed in parallel")

	return cmd
}

// analyzeAll analyzes every argument with at most concurrency in flight.
// A failing argument does not cancel the others.
func analyzeAll(ctx context.Context, c *cli, cmd *cobra.Command, rt *app.Runtime, args []string, concurrency int) []analyzeOutcome {
	if concurrency < 1 {
		concurrency = 1
	}
	outcomes := make([]analyzeOutcome, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, arg := range args {
		g.Go(func() error {
			outcomes[i].Arg = arg
			r, err := c.analyzeOne(gctx, cmd, rt.Session, rt.Reader, arg)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			outcomes[i].Result = r
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
