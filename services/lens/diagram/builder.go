// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagram

import (
	"strings"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

// Build derives both graphs from a structural model.
//
// Description:
//
//	Build is a pure function of its inputs. Zero or negative limits fall
//	back to DefaultLimits.
//
// Inputs:
//
//	m      - The structural model.
//	limits - Drawing limits.
//
// Outputs:
//
//	Model - Both graphs. Slices are never nil.
func Build(m structure.Model, limits Limits) Model {
	def := DefaultLimits()
	if limits.MaxStateEntries <= 0 {
		limits.MaxStateEntries = def.MaxStateEntries
	}
	if limits.MaxStandaloneFunctions <= 0 {
		limits.MaxStandaloneFunctions = def.MaxStandaloneFunctions
	}
	return Model{
		Class: BuildClassGraph(m, limits),
		Call:  BuildCallGraph(m, limits),
	}
}

// BuildClassGraph builds the class/module graph.
//
// Each class becomes an entry with its methods and properties, and each
// non-empty superclass adds an inheritance edge. All functions go into one
// Module entry. The first MaxStateEntries variables go into one State
// entry, with More counting the rest. A "uses" association joins Module to
// State when both exist.
func BuildClassGraph(m structure.Model, limits Limits) ClassGraph {
	g := ClassGraph{
		Entries:     []ClassEntry{},
		Inheritance: []Inheritance{},
		Uses:        []Association{},
	}

	for _, c := range m.Classes {
		entry := ClassEntry{
			Name:    c.Name,
			Kind:    EntryClass,
			Members: make([]Member, 0, len(c.Properties)+len(c.Methods)),
		}
		for _, p := range c.Properties {
			entry.Members = append(entry.Members, Member{
				Name:      p.Name,
				Kind:      MemberProperty,
				Signature: p.Name,
				IsStatic:  p.IsStatic,
			})
		}
		for _, meth := range c.Methods {
			entry.Members = append(entry.Members, Member{
				Name:      meth.Name,
				Kind:      MemberMethod,
				Signature: methodSignature(meth),
				IsStatic:  meth.IsStatic,
			})
		}
		g.Entries = append(g.Entries, entry)
		if c.Extends != "" {
			g.Inheritance = append(g.Inheritance, Inheritance{Parent: c.Extends, Child: c.Name})
		}
	}

	hasModule := len(m.Functions) > 0
	if hasModule {
		module := ClassEntry{Name: ModuleEntry, Kind: EntryModule, Members: make([]Member, 0, len(m.Functions))}
		for _, fn := range m.Functions {
			module.Members = append(module.Members, Member{
				Name:      fn.Name,
				Kind:      MemberFunction,
				Signature: fn.Name + "(" + strings.Join(fn.Params, ", ") + ")",
				IsArrow:   fn.IsArrow,
			})
		}
		g.Entries = append(g.Entries, module)
	}

	hasState := len(m.Variables) > 0
	if hasState {
		shown := m.Variables
		if len(shown) > limits.MaxStateEntries {
			shown = shown[:limits.MaxStateEntries]
		}
		state := ClassEntry{Name: StateEntry, Kind: EntryState, Members: make([]Member, 0, len(shown))}
		for _, v := range shown {
			state.Members = append(state.Members, Member{
				Name:      v.Name,
				Kind:      MemberVariable,
				Signature: v.DeclarationKind + " " + v.Name,
			})
		}
		state.More = len(m.Variables) - len(shown)
		g.Entries = append(g.Entries, state)
	}

	if hasModule && hasState {
		g.Uses = append(g.Uses, Association{From: ModuleEntry, To: StateEntry, Label: UsesLabel})
	}
	return g
}

func methodSignature(m structure.Method) string {
	switch m.Kind {
	case "get", "set":
		return m.Kind + " " + m.Name + "()"
	}
	return m.Name + "()"
}

// BuildCallGraph builds the call graph.
//
// Nodes are the distinct function names of the model. An edge is kept when
// both caller and callee are known function names and the caller is not
// the global context; duplicate edges collapse. With no edges, up to
// MaxStandaloneFunctions functions are listed on their own. Listener
// registrations collapse into one aggregate node.
func BuildCallGraph(m structure.Model, limits Limits) CallGraph {
	g := CallGraph{
		Nodes:      []string{},
		Edges:      []CallEdge{},
		Standalone: []string{},
	}

	names := m.FunctionNames()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	seenEdge := make(map[CallEdge]bool)
	seenNode := make(map[string]bool)
	addNode := func(name string) {
		if !seenNode[name] {
			seenNode[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}

	listeners := 0
	for _, c := range m.Calls {
		if c.To == ast.EventListenerMethod {
			listeners++
		}
		if c.From == ast.GlobalContext || !known[c.From] || !known[c.To] {
			continue
		}
		e := CallEdge{From: c.From, To: c.To}
		if seenEdge[e] {
			continue
		}
		seenEdge[e] = true
		g.Edges = append(g.Edges, e)
		addNode(c.From)
		addNode(c.To)
	}

	if len(g.Edges) == 0 && len(names) > 0 {
		shown := names
		if len(shown) > limits.MaxStandaloneFunctions {
			shown = shown[:limits.MaxStandaloneFunctions]
		}
		g.Standalone = append(g.Standalone, shown...)
		g.StandaloneMore = len(names) - len(shown)
	}

	if listeners > 0 {
		g.EventListeners = &EventAggregate{
			Count:            listeners,
			LinksToFunctions: len(g.Nodes) > 0 || len(g.Standalone) > 0,
		}
	}
	return g
}
