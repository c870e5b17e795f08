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
	"fmt"
	"sort"

	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

// ResultDiff contains the differences between two results.
type ResultDiff struct {
	BaseID   string `json:"base_id"`
	TargetID string `json:"target_id"`

	// Counts holds target minus base for every snapshot count.
	Counts CountDelta `json:"counts"`

	// Quality holds target minus base for every quality score.
	Quality QualityDelta `json:"quality"`

	FunctionsAdded   []string `json:"functions_added"`
	FunctionsRemoved []string `json:"functions_removed"`
	ClassesAdded     []string `json:"classes_added"`
	ClassesRemoved   []string `json:"classes_removed"`

	// CallEdgesAdded and CallEdgesRemoved count call-graph edge changes.
	CallEdgesAdded   int `json:"call_edges_added"`
	CallEdgesRemoved int `json:"call_edges_removed"`

	// TotalChanges is the number of added and removed names and edges.
	TotalChanges int `json:"total_changes"`
}

// CountDelta is the change in raw counts.
type CountDelta struct {
	Functions      int `json:"functions"`
	Variables      int `json:"variables"`
	EventListeners int `json:"event_listeners"`
	MaxLine        int `json:"max_line"`
}

// QualityDelta is the change in quality scores.
type QualityDelta struct {
	Functions       int `json:"functions"`
	Variables       int `json:"variables"`
	EventListeners  int `json:"event_listeners"`
	Maintainability int `json:"maintainability"`
	Total           int `json:"total"`
}

// Diff computes the differences between two results.
//
// Description:
//
//	Functions and classes are compared by name. Names repeated within one
//	result count once. Output name lists are sorted for deterministic
//	output.
//
// Inputs:
//
//	base   - The older result. Must not be nil.
//	target - The newer result. Must not be nil.
//
// Outputs:
//
//	*ResultDiff - The computed differences.
//	error       - Non-nil if either result is nil.
func Diff(base, target *Result) (*ResultDiff, error) {
	if base == nil {
		return nil, fmt.Errorf("base result must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target result must not be nil")
	}

	bs, ts := base.Snapshot, target.Snapshot
	bq, tq := base.Quality, target.Quality
	d := &ResultDiff{
		BaseID:   base.ID,
		TargetID: target.ID,
		Counts: CountDelta{
			Functions:      ts.FunctionCount - bs.FunctionCount,
			Variables:      ts.VariableCount - bs.VariableCount,
			EventListeners: ts.EventListenerCount - bs.EventListenerCount,
			MaxLine:        ts.MaxLine - bs.MaxLine,
		},
		Quality: QualityDelta{
			Functions:       tq.Functions - bq.Functions,
			Variables:       tq.Variables - bq.Variables,
			EventListeners:  tq.EventListeners - bq.EventListeners,
			Maintainability: tq.Maintainability - bq.Maintainability,
			Total:           tq.Total - bq.Total,
		},
	}

	d.FunctionsAdded, d.FunctionsRemoved = setDiff(functionNames(base.Structure), functionNames(target.Structure))
	d.ClassesAdded, d.ClassesRemoved = setDiff(classNames(base.Structure), classNames(target.Structure))

	baseEdges := make(map[string]bool)
	for _, e := range base.Diagrams.Call.Edges {
		baseEdges[e.From+"|"+e.To] = true
	}
	targetEdges := make(map[string]bool)
	for _, e := range target.Diagrams.Call.Edges {
		targetEdges[e.From+"|"+e.To] = true
	}
	for k := range targetEdges {
		if !baseEdges[k] {
			d.CallEdgesAdded++
		}
	}
	for k := range baseEdges {
		if !targetEdges[k] {
			d.CallEdgesRemoved++
		}
	}

	d.TotalChanges = len(d.FunctionsAdded) + len(d.FunctionsRemoved) +
		len(d.ClassesAdded) + len(d.ClassesRemoved) +
		d.CallEdgesAdded + d.CallEdgesRemoved
	return d, nil
}

func functionNames(m structure.Model) map[string]bool {
	set := make(map[string]bool, len(m.Functions))
	for _, f := range m.Functions {
		set[f.Name] = true
	}
	return set
}

func classNames(m structure.Model) map[string]bool {
	set := make(map[string]bool, len(m.Classes))
	for _, c := range m.Classes {
		set[c.Name] = true
	}
	return set
}

// setDiff returns the sorted names only in target and only in base.
func setDiff(base, target map[string]bool) (added, removed []string) {
	added, removed = []string{}, []string{}
	for name := range target {
		if !base[name] {
			added = append(added, name)
		}
	}
	for name := range base {
		if !target[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
