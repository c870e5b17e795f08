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
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLens/services/lens/app"
)

const defaultDebounce = 100 * time.Millisecond

func newWatchCmd(c *cli) *cobra.Command {
	var (
		debounce time.Duration
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "watch <bundle.zip|file.js>",
		Short: "Re-analyze a file every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.New(c.cfg, c.logger, app.Options{Snapshots: save})
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			st := newStyles(isTerminal(out))
			run := func(ctx context.Context) {
				r, err := c.analyzeOne(ctx, cmd, rt.Session, rt.Reader, args[0])
				stamp := st.faint.Render(time.Now().Format("15:04:05") + " ")
				if err != nil {
					fmt.Fprintln(out, stamp+st.err.Render(err.Error()))
					return
				}
				fmt.Fprint(out, stamp+renderSummary(st, r))
			}

			run(cmd.Context())
			return watchFile(cmd.Context(), args[0], debounce, c.logger, run)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period before re-analyzing")
	cmd.Flags().BoolVar(&save, "save", false, "Record every run in the snapshot store")
	return cmd
}

// watchFile calls onChange after path is written, created or renamed into
// place, once events have been quiet for debounce. It returns when ctx is
// done.
//
// The parent directory is watched rather than the file so editors that
// replace files atomically keep triggering.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(context.Context)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("watch event", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.String("error", err.Error()))
		case <-timer.C:
			onChange(ctx)
		}
	}
}
