// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import "strconv"

// Entry is one labeled value for display.
type Entry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ExtendedEntries lists the extended metrics in display order.
func ExtendedEntries(x Extended) []Entry {
	return []Entry{
		{"loc", "Lines of Code", strconv.Itoa(x.LOC)},
		{"cyclomatic", "Cyclomatic Complexity", strconv.Itoa(x.Cyclomatic)},
		{"cbo", "Coupling Between Objects", strconv.Itoa(x.CBO)},
		{"rfc", "Response For a Class", strconv.Itoa(x.RFC)},
		{"fan_out", "Fan-Out", strconv.Itoa(x.FanOut)},
		{"lcom", "Lack of Cohesion of Methods", strconv.Itoa(x.LCOM)},
		{"tcc", "Tight Class Cohesion", strconv.FormatFloat(x.TCC, 'f', 2, 64)},
		{"dit", "Depth of Inheritance Tree", strconv.Itoa(x.DIT)},
		{"noc", "Number of Children", strconv.Itoa(x.NOC)},
		{"wmc", "Weighted Methods per Class", strconv.Itoa(x.WMC)},
		{"halstead_volume", "Halstead Volume", strconv.Itoa(x.HalsteadVolume)},
		{"halstead_effort", "Halstead Effort", strconv.Itoa(x.HalsteadEffort)},
		{"maintainability_index", "Maintainability Index", strconv.Itoa(x.MaintainabilityIndex)},
	}
}

// QualityEntries lists the quality scores in display order.
func QualityEntries(q Quality) []Entry {
	return []Entry{
		{"functions", "Function Score", strconv.Itoa(q.Functions)},
		{"variables", "Variable Score", strconv.Itoa(q.Variables)},
		{"event_listeners", "Event Listener Score", strconv.Itoa(q.EventListeners)},
		{"maintainability", "Maintainability Score", strconv.Itoa(q.Maintainability)},
		{"total", "Total Score", strconv.Itoa(q.Total)},
	}
}

// Grade buckets a 0-100 score for display.
func Grade(score int) string {
	switch {
	case score >= 80:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}
