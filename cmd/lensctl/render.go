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
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

// styles holds the text styles for terminal output. Plain styles are used
// when output is not a terminal.
type styles struct {
	title lipgloss.Style
	faint lipgloss.Style
	label lipgloss.Style
	good  lipgloss.Style
	fair  lipgloss.Style
	poor  lipgloss.Style
	err   lipgloss.Style
	tab   lipgloss.Style
	tabOn lipgloss.Style
}

func newStyles(color bool) styles {
	plain := lipgloss.NewStyle()
	if !color {
		return styles{
			title: plain, faint: plain, good: plain, fair: plain, poor: plain, err: plain,
			label: plain.Width(32),
			tab:   plain.Padding(0, 1),
			tabOn: plain.Padding(0, 1).Underline(true),
		}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		faint: lipgloss.NewStyle().Faint(true),
		label: lipgloss.NewStyle().Width(32).Foreground(lipgloss.Color("245")),
		good:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		fair:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		poor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		tab:   lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
		tabOn: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("39")).Underline(true),
	}
}

func (s styles) grade(score int) string {
	text := fmt.Sprintf("%d %s", score, metrics.Grade(score))
	switch metrics.Grade(score) {
	case "good":
		return s.good.Render(text)
	case "fair":
		return s.fair.Render(text)
	default:
		return s.poor.Render(text)
	}
}

// renderSummary formats the header, counts and quality of r.
func renderSummary(s styles, r *analysis.Result) string {
	var b strings.Builder
	b.WriteString(s.title.Render(r.FileName))
	if r.BundleName != r.FileName {
		b.WriteString(s.faint.Render(" (" + r.BundleName + ")"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  functions %d  variables %d  event listeners %d  lines %d  classes %d\n",
		r.Snapshot.FunctionCount, r.Snapshot.VariableCount, r.Snapshot.EventListenerCount,
		r.Snapshot.MaxLine, len(r.Structure.Classes))
	fmt.Fprintf(&b, "  quality %s\n", s.grade(r.Quality.Total))
	return b.String()
}

// renderMetrics formats the quality breakdown and the extended metrics.
func renderMetrics(s styles, r *analysis.Result) string {
	var b strings.Builder
	b.WriteString(s.title.Render("Quality") + "\n")
	for _, e := range metrics.QualityEntries(r.Quality) {
		b.WriteString("  " + s.label.Render(e.Label) + e.Value + "\n")
	}
	b.WriteString("\n" + s.title.Render("Extended Metrics") + "\n")
	for _, e := range metrics.ExtendedEntries(r.Extended) {
		b.WriteString("  " + s.label.Render(e.Label) + e.Value + "\n")
	}
	return b.String()
}

// renderStructure lists classes, functions, variables and calls.
func renderStructure(s styles, m structure.Model) string {
	var b strings.Builder

	b.WriteString(s.title.Render(fmt.Sprintf("Classes (%d)", len(m.Classes))) + "\n")
	for _, c := range m.Classes {
		line := "  " + c.Name
		if c.Extends != "" {
			line += s.faint.Render(" extends " + c.Extends)
		}
		b.WriteString(line + "\n")
		for _, meth := range c.Methods {
			prefix := "    "
			if meth.IsStatic {
				prefix += "static "
			}
			b.WriteString(prefix + meth.Name + "()" + s.faint.Render(" "+meth.Kind) + "\n")
		}
	}

	b.WriteString("\n" + s.title.Render(fmt.Sprintf("Functions (%d)", len(m.Functions))) + "\n")
	for _, f := range m.Functions {
		b.WriteString(fmt.Sprintf("  %s(%s)", f.Name, strings.Join(f.Params, ", ")))
		if f.IsArrow {
			b.WriteString(s.faint.Render(" arrow"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + s.title.Render(fmt.Sprintf("Variables (%d)", len(m.Variables))) + "\n")
	for _, v := range m.Variables {
		b.WriteString("  " + s.faint.Render(v.DeclarationKind) + " " + v.Name + "\n")
	}

	b.WriteString("\n" + s.title.Render(fmt.Sprintf("Calls (%d)", len(m.Calls))) + "\n")
	for _, c := range m.Calls {
		b.WriteString("  " + c.From + " -> " + c.To + "\n")
	}
	return b.String()
}
