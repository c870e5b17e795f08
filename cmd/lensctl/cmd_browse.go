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
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/app"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
)

func newBrowseCmd(c *cli) *cobra.Command {
	var snapshotID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "browse [bundle.zip|file.js]",
		Short: "Browse a result interactively",
		Long: `Open a result in a tabbed terminal viewer. With no argument, pick a
stored snapshot (or pass --snapshot).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd.OutOrStdout()) {
				return errors.New("browse needs an interactive terminal; use `lensctl analyze -v` instead")
			}

			var r *analysis.Result
			var err error
			if len(args) == 1 {
				rt, err := app.New(c.cfg, c.logger, app.Options{})
				if err != nil {
					return err
				}
				defer rt.Close()
				if r, err = c.analyzeOne(cmd.Context(), cmd, rt.Session, rt.Reader, args[0]); err != nil {
					return err
				}
			} else if r, err = c.pickSnapshot(cmd, dbPath, snapshotID); err != nil {
				return err
			}

			_, err = tea.NewProgram(newBrowseModel(r, newStyles(true)), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "Browse this stored snapshot")
	cmd.Flags().StringVar(&dbPath, "db", "", "Snapshot BadgerDB directory (overrides config)")
	return cmd
}

// pickSnapshot loads id, or lets the user choose among recent snapshots.
func (c *cli) pickSnapshot(cmd *cobra.Command, dbPath, id string) (*analysis.Result, error) {
	storage := c.cfg.Storage
	if dbPath != "" {
		storage.SnapshotDir, storage.InMemory = dbPath, false
	}
	db, err := app.OpenDB(storage)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	store, err := analysis.NewSnapshotStore(db, c.logger, 0)
	if err != nil {
		return nil, err
	}

	if id == "" {
		snaps, err := store.List(cmd.Context(), "", 30)
		if err != nil {
			return nil, err
		}
		if len(snaps) == 0 {
			return nil, errors.New("no snapshots stored; pass a bundle to analyze")
		}
		options := make([]huh.Option[string], 0, len(snaps))
		for _, m := range snaps {
			label := fmt.Sprintf("%s  %s  quality %d", m.BundleName, m.FileName, m.QualityTotal)
			if m.Label != "" {
				label += "  [" + m.Label + "]"
			}
			options = append(options, huh.NewOption(label, m.SnapshotID))
		}
		if err := huh.NewSelect[string]().
			Title("Snapshot").
			Options(options...).
			Value(&id).
			Run(); err != nil {
			return nil, err
		}
	}

	r, _, err := store.Load(cmd.Context(), id)
	return r, err
}

// browseTabs are the browser's pages in display order.
var browseTabs = []string{"Metrics", "Structure", "Class Diagram", "Call Graph", "Provided"}

// browseModel is the tea.Model of the result browser.
type browseModel struct {
	result   *analysis.Result
	styles   styles
	pages    []string
	active   int
	viewport viewport.Model
	ready    bool
}

func newBrowseModel(r *analysis.Result, st styles) browseModel {
	var m diagram.Mermaid
	provided := r.ProvidedAnalysis
	if provided == "" {
		provided = "The bundle carried no analysis entry."
	}
	return browseModel{
		result: r,
		styles: st,
		pages: []string{
			renderSummary(st, r) + "\n" + renderMetrics(st, r),
			renderStructure(st, r.Structure),
			m.ClassDiagram(r.Diagrams.Class),
			m.CallGraph(r.Diagrams.Call),
			provided,
		},
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.setActive((m.active + 1) % len(m.pages))
			return m, nil
		case "shift+tab", "left", "h":
			m.setActive((m.active + len(m.pages) - 1) % len(m.pages))
			return m, nil
		}
	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.pages[m.active])
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browseModel) setActive(i int) {
	m.active = i
	if m.ready {
		m.viewport.SetContent(m.pages[i])
		m.viewport.GotoTop()
	}
}

func (m browseModel) header() string {
	tabs := make([]string, len(browseTabs))
	for i, name := range browseTabs {
		if i == m.active {
			tabs[i] = m.styles.tabOn.Render(name)
		} else {
			tabs[i] = m.styles.tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m browseModel) footer() string {
	return m.styles.faint.Render("tab/←→ switch  ↑↓ scroll  q quit")
}

func (m browseModel) View() string {
	if !m.ready {
		return "loading..."
	}
	return strings.Join([]string{m.header(), m.viewport.View(), m.footer()}, "\n")
}
