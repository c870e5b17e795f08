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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/app"
)

func newSnapshotsCmd(c *cli) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snap"},
		Short:   "Inspect the snapshot store",
		Long: `Inspect stored analysis snapshots. The store path comes from
storage.snapshot_dir in the config unless --db is given.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Snapshot BadgerDB directory (overrides config)")

	open := func() (*badger.DB, *analysis.SnapshotStore, error) {
		storage := c.cfg.Storage
		if dbPath != "" {
			storage.SnapshotDir = dbPath
			storage.InMemory = false
		}
		if storage.InMemory {
			return nil, nil, errors.New("snapshot store is configured in memory; nothing to inspect")
		}
		if _, err := os.Stat(storage.SnapshotDir); os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("snapshot directory %s does not exist; run `lensctl analyze --save` first", storage.SnapshotDir)
		}
		db, err := app.OpenDB(storage)
		if err != nil {
			return nil, nil, err
		}
		store, err := analysis.NewSnapshotStore(db, c.logger, 0)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, store, nil
	}

	cmd.AddCommand(newSnapshotsListCmd(c, open))
	cmd.AddCommand(newSnapshotsShowCmd(c, open))
	cmd.AddCommand(newSnapshotsDeleteCmd(c, open))
	cmd.AddCommand(newSnapshotsDiffCmd(c, open))
	cmd.AddCommand(newSnapshotsPruneCmd(c, open))
	return cmd
}

type storeOpener func() (*badger.DB, *analysis.SnapshotStore, error)

func newSnapshotsListCmd(_ *cli, open storeOpener) *cobra.Command {
	var bundleName string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			snaps, err := store.List(cmd.Context(), bundleName, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snaps)
			}
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No snapshots stored.")
				return nil
			}
			writeSnapshotTable(out, snaps)
			return nil
		},
	}
	cmd.Flags().StringVar(&bundleName, "bundle", "", "Only list snapshots of this bundle")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metadata as JSON")
	return cmd
}

func writeSnapshotTable(w io.Writer, snaps []*analysis.SnapshotMetadata) {
	rows := make([][]string, 0, len(snaps))
	for _, m := range snaps {
		rows = append(rows, []string{
			m.SnapshotID,
			m.BundleName,
			m.FileName,
			strconv.Itoa(m.QualityTotal),
			strconv.Itoa(m.FunctionCount),
			strconv.Itoa(m.VariableCount),
			time.UnixMilli(m.CreatedAtMilli).Format(time.DateTime),
			m.Label,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "BUNDLE", "FILE", "QUALITY", "FUNCS", "VARS", "CREATED", "LABEL").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}

func newSnapshotsShowCmd(_ *cli, open storeOpener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			r, meta, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			st := newStyles(isTerminal(out))
			fmt.Fprint(out, renderSummary(st, r))
			if meta.Label != "" {
				fmt.Fprintf(out, "  label %s\n", meta.Label)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderMetrics(st, r))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newSnapshotsDeleteCmd(c *cli, open storeOpener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !isTerminal(cmd.InOrStdin()) {
					return errors.New("refusing to delete without confirmation; pass --yes")
				}
				confirmed := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete %d snapshot(s)?", len(args))).
					Description(strings.Join(args, "\n")).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			db, store, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
				c.logger.Info("snapshot deleted", slog.String("snapshot_id", id))
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newSnapshotsDiffCmd(_ *cli, open storeOpener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff <base-id> <target-id>",
		Short: "Compare two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			base, _, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("base: %w", err)
			}
			target, _, err := store.Load(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}
			d, err := analysis.Diff(base, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			writeDiff(out, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the diff as JSON")
	return cmd
}

func writeDiff(w io.Writer, d *analysis.ResultDiff) {
	fmt.Fprintf(w, "%s -> %s: %d changes\n", d.BaseID, d.TargetID, d.TotalChanges)
	fmt.Fprintf(w, "  functions %+d  variables %+d  event listeners %+d  lines %+d\n",
		d.Counts.Functions, d.Counts.Variables, d.Counts.EventListeners, d.Counts.MaxLine)
	fmt.Fprintf(w, "  quality total %+d  (functions %+d, variables %+d, events %+d, maintainability %+d)\n",
		d.Quality.Total, d.Quality.Functions, d.Quality.Variables, d.Quality.EventListeners, d.Quality.Maintainability)
	for _, name := range d.FunctionsAdded {
		fmt.Fprintf(w, "  + function %s\n", name)
	}
	for _, name := range d.FunctionsRemoved {
		fmt.Fprintf(w, "  - function %s\n", name)
	}
	for _, name := range d.ClassesAdded {
		fmt.Fprintf(w, "  + class %s\n", name)
	}
	for _, name := range d.ClassesRemoved {
		fmt.Fprintf(w, "  - class %s\n", name)
	}
	if d.CallEdgesAdded > 0 || d.CallEdgesRemoved > 0 {
		fmt.Fprintf(w, "  call edges +%d -%d\n", d.CallEdgesAdded, d.CallEdgesRemoved)
	}
}

func newSnapshotsPruneCmd(_ *cli, open storeOpener) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1")
			}
			db, store, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d snapshot(s), kept %d\n", n, keep)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Snapshots to keep")
	return cmd
}
