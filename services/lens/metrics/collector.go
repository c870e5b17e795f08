// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics counts syntactic facts in a tree and derives the extended
// metric set and quality scores from them.
//
// All numbers here are shallow proxies built from a handful of counts. They
// are presentation heuristics, not validated software metrics.
package metrics

import "github.com/AleutianAI/AleutianLens/services/lens/ast"

// Snapshot is the raw count set for one tree.
type Snapshot struct {
	// FunctionCount counts function declarations only. Function and arrow
	// expressions are not included.
	FunctionCount int `json:"function_count"`

	// VariableCount counts variable declarators, including those whose
	// value is a function.
	VariableCount int `json:"variable_count"`

	// EventListenerCount counts member calls to addEventListener.
	EventListenerCount int `json:"event_listener_count"`

	// MaxLine is the highest end line of any node with a span.
	MaxLine int `json:"max_line"`
}

// Collector is a Visitor accumulating a Snapshot.
//
// A Collector is single use and not safe for concurrent walks.
type Collector struct {
	snap Snapshot
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Visit implements ast.Visitor.
func (c *Collector) Visit(n *ast.Node, _ ast.Frame) {
	switch n.Kind {
	case ast.KindFunctionDeclaration:
		c.snap.FunctionCount++
	case ast.KindVariableDeclarator:
		c.snap.VariableCount++
	case ast.KindCallExpression:
		if ast.PropertyName(n.Child("callee")) == ast.EventListenerMethod {
			c.snap.EventListenerCount++
		}
	}
	if n.Span != nil && n.Span.EndLine > c.snap.MaxLine {
		c.snap.MaxLine = n.Span.EndLine
	}
}

// Snapshot returns the counts gathered so far.
func (c *Collector) Snapshot() Snapshot {
	return c.snap
}

// Collect walks root once and returns its Snapshot. The result depends only
// on the tree.
func Collect(root *ast.Node) Snapshot {
	c := NewCollector()
	ast.Walk(root, c)
	return c.Snapshot()
}
