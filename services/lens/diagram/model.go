// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diagram turns a structural model into renderer-agnostic graphs:
// a class/module graph and a call graph.
//
// The graphs keep raw names. Renderers are responsible for escaping names
// into their own identifier syntax.
package diagram

// Synthetic node names.
const (
	ModuleEntry        = "Module"
	StateEntry         = "State"
	EventListenersNode = "Event Listeners"
	UsesLabel          = "uses"
)

// EntryKind distinguishes real classes from the synthetic entries.
type EntryKind string

const (
	EntryClass  EntryKind = "class"
	EntryModule EntryKind = "module"
	EntryState  EntryKind = "state"
)

// MemberKind classifies a line inside an entry.
type MemberKind string

const (
	MemberMethod   MemberKind = "method"
	MemberProperty MemberKind = "property"
	MemberFunction MemberKind = "function"
	MemberVariable MemberKind = "variable"
)

// Limits bounds how much of the model is drawn.
type Limits struct {
	// MaxStateEntries caps variables listed in the State entry.
	MaxStateEntries int `yaml:"max_state_entries" json:"max_state_entries" validate:"gte=1"`

	// MaxStandaloneFunctions caps function nodes drawn when the call graph
	// has no edges.
	MaxStandaloneFunctions int `yaml:"max_standalone_functions" json:"max_standalone_functions" validate:"gte=1"`
}

// DefaultLimits returns the stock drawing limits.
func DefaultLimits() Limits {
	return Limits{
		MaxStateEntries:        10,
		MaxStandaloneFunctions: 8,
	}
}

// Model holds both graphs for one analysis.
type Model struct {
	Class ClassGraph `json:"class_graph"`
	Call  CallGraph  `json:"call_graph"`
}

// ClassGraph is the class/module diagram.
type ClassGraph struct {
	Entries     []ClassEntry  `json:"entries"`
	Inheritance []Inheritance `json:"inheritance"`
	Uses        []Association `json:"uses"`
}

// Empty reports whether there is nothing to draw.
func (g ClassGraph) Empty() bool {
	return len(g.Entries) == 0
}

// Entry returns the entry with the given name and kind, if present.
func (g ClassGraph) Entry(kind EntryKind, name string) (ClassEntry, bool) {
	for _, e := range g.Entries {
		if e.Kind == kind && e.Name == name {
			return e, true
		}
	}
	return ClassEntry{}, false
}

// ClassEntry is one box in the class diagram.
type ClassEntry struct {
	Name    string    `json:"name"`
	Kind    EntryKind `json:"kind"`
	Members []Member  `json:"members"`

	// More counts members left out because of Limits.
	More int `json:"more,omitempty"`
}

// Member is one line inside a ClassEntry.
type Member struct {
	Name string     `json:"name"`
	Kind MemberKind `json:"kind"`

	// Signature is the display text: "name(a, b)" for functions and
	// "const name" for variables.
	Signature string `json:"signature"`

	IsStatic bool `json:"is_static,omitempty"`
	IsArrow  bool `json:"is_arrow,omitempty"`
}

// Inheritance is a parent to child edge.
type Inheritance struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Association is a labeled edge between two entries.
type Association struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// CallGraph is the function call diagram.
type CallGraph struct {
	// Nodes are the function names that appear in at least one edge, in
	// first-seen order.
	Nodes []string `json:"nodes"`

	// Edges are distinct caller to callee pairs in first-seen order.
	Edges []CallEdge `json:"edges"`

	// Standalone lists functions drawn without edges. It is only filled
	// when Edges is empty.
	Standalone []string `json:"standalone"`

	// StandaloneMore counts functions left out of Standalone.
	StandaloneMore int `json:"standalone_more,omitempty"`

	// EventListeners is set when any call registers an event listener.
	EventListeners *EventAggregate `json:"event_listeners,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (g CallGraph) Empty() bool {
	return len(g.Nodes) == 0 && len(g.Standalone) == 0 && g.EventListeners == nil
}

// CallEdge is a caller to callee edge.
type CallEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EventAggregate is the single node standing in for all listener
// registrations.
type EventAggregate struct {
	Count int `json:"count"`

	// LinksToFunctions is true when function nodes exist, in which case the
	// aggregate points into the function group.
	LinksToFunctions bool `json:"links_to_functions"`
}
