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
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

func modelWith(fns []string, vars int, calls ...structure.Call) structure.Model {
	m := structure.NewModel()
	for _, f := range fns {
		m.Functions = append(m.Functions, structure.Function{Name: f, Params: []string{}})
	}
	for i := 0; i < vars; i++ {
		m.Variables = append(m.Variables, structure.Variable{Name: fmt.Sprintf("v%d", i), DeclarationKind: "let"})
	}
	m.Calls = append(m.Calls, calls...)
	return m
}

func TestBuildClassGraph_Empty(t *testing.T) {
	g := BuildClassGraph(structure.NewModel(), DefaultLimits())
	if !g.Empty() {
		t.Errorf("entries = %d, want 0", len(g.Entries))
	}
	if g.Inheritance == nil || g.Uses == nil {
		t.Error("slices must be non-nil")
	}
}

func TestBuildClassGraph_ClassesAndInheritance(t *testing.T) {
	m := structure.NewModel()
	m.Classes = []structure.Class{
		{
			Name:       "Dog",
			Extends:    "Animal",
			Methods:    []structure.Method{{Name: "bark", Kind: "method"}, {Name: "name", Kind: "get"}},
			Properties: []structure.Property{{Name: "count", IsStatic: true}},
		},
		{Name: "Plain", Methods: []structure.Method{}, Properties: []structure.Property{}},
	}

	g := BuildClassGraph(m, DefaultLimits())
	if len(g.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(g.Entries))
	}
	dog, ok := g.Entry(EntryClass, "Dog")
	if !ok {
		t.Fatal("Dog entry missing")
	}
	if len(dog.Members) != 3 {
		t.Fatalf("Dog members = %d, want 3", len(dog.Members))
	}
	if dog.Members[0].Kind != MemberProperty || !dog.Members[0].IsStatic {
		t.Errorf("first member = %+v, want static property", dog.Members[0])
	}
	if dog.Members[2].Signature != "get name()" {
		t.Errorf("getter signature = %q", dog.Members[2].Signature)
	}
	if len(g.Inheritance) != 1 || g.Inheritance[0] != (Inheritance{Parent: "Animal", Child: "Dog"}) {
		t.Errorf("inheritance = %+v", g.Inheritance)
	}
	if len(g.Uses) != 0 {
		t.Errorf("uses = %+v, want none without module and state", g.Uses)
	}
}

func TestBuildClassGraph_ModuleAndState(t *testing.T) {
	m := modelWith([]string{"a", "b"}, 13)
	m.Functions[1].Params = []string{"x", "param"}
	m.Functions[1].IsArrow = true

	g := BuildClassGraph(m, DefaultLimits())

	module, ok := g.Entry(EntryModule, ModuleEntry)
	if !ok {
		t.Fatal("Module entry missing")
	}
	if len(module.Members) != 2 {
		t.Fatalf("module members = %d, want 2", len(module.Members))
	}
	if module.Members[1].Signature != "b(x, param)" || !module.Members[1].IsArrow {
		t.Errorf("module member = %+v", module.Members[1])
	}

	state, ok := g.Entry(EntryState, StateEntry)
	if !ok {
		t.Fatal("State entry missing")
	}
	if len(state.Members) != 10 {
		t.Errorf("state members = %d, want 10", len(state.Members))
	}
	if state.More != 3 {
		t.Errorf("state more = %d, want 3", state.More)
	}
	if state.Members[0].Signature != "let v0" {
		t.Errorf("state signature = %q", state.Members[0].Signature)
	}

	want := Association{From: ModuleEntry, To: StateEntry, Label: UsesLabel}
	if len(g.Uses) != 1 || g.Uses[0] != want {
		t.Errorf("uses = %+v, want [%+v]", g.Uses, want)
	}
}

func TestBuildClassGraph_StateWithinLimit(t *testing.T) {
	g := BuildClassGraph(modelWith(nil, 4), DefaultLimits())
	state, ok := g.Entry(EntryState, StateEntry)
	if !ok {
		t.Fatal("State entry missing")
	}
	if len(state.Members) != 4 || state.More != 0 {
		t.Errorf("members = %d more = %d, want 4/0", len(state.Members), state.More)
	}
	if _, ok := g.Entry(EntryModule, ModuleEntry); ok {
		t.Error("Module entry present without functions")
	}
	if len(g.Uses) != 0 {
		t.Error("uses edge present without functions")
	}
}

func TestBuildCallGraph_EdgesDeduplicated(t *testing.T) {
	m := modelWith([]string{"main", "helper", "util", "main"}, 0,
		structure.Call{From: "main", To: "helper"},
		structure.Call{From: "main", To: "helper"},
		structure.Call{From: "helper", To: "util"},
		structure.Call{From: ast.GlobalContext, To: "main"},
		structure.Call{From: "main", To: "console"},
		structure.Call{From: "unknown", To: "util"},
	)

	g := BuildCallGraph(m, DefaultLimits())

	wantEdges := []CallEdge{{"main", "helper"}, {"helper", "util"}}
	if len(g.Edges) != len(wantEdges) {
		t.Fatalf("edges = %+v, want %+v", g.Edges, wantEdges)
	}
	for i := range wantEdges {
		if g.Edges[i] != wantEdges[i] {
			t.Errorf("edge[%d] = %+v, want %+v", i, g.Edges[i], wantEdges[i])
		}
	}
	if got := strings.Join(g.Nodes, ","); got != "main,helper,util" {
		t.Errorf("nodes = %s, want main,helper,util", got)
	}
	if len(g.Standalone) != 0 {
		t.Errorf("standalone = %v, want none when edges exist", g.Standalone)
	}
	if g.EventListeners != nil {
		t.Errorf("event aggregate = %+v, want nil", g.EventListeners)
	}
}

func TestBuildCallGraph_StandaloneFallback(t *testing.T) {
	names := []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10"}
	g := BuildCallGraph(modelWith(names, 0), DefaultLimits())

	if len(g.Edges) != 0 {
		t.Fatalf("edges = %d, want 0", len(g.Edges))
	}
	if len(g.Standalone) != 8 {
		t.Errorf("standalone = %d, want 8", len(g.Standalone))
	}
	if g.StandaloneMore != 3 {
		t.Errorf("standalone more = %d, want 3", g.StandaloneMore)
	}
}

func TestBuildCallGraph_EventListeners(t *testing.T) {
	m := modelWith([]string{"init"}, 0,
		structure.Call{From: "init", To: ast.EventListenerMethod},
		structure.Call{From: ast.GlobalContext, To: ast.EventListenerMethod},
	)
	g := BuildCallGraph(m, DefaultLimits())
	if g.EventListeners == nil {
		t.Fatal("event aggregate missing")
	}
	if g.EventListeners.Count != 2 {
		t.Errorf("listener count = %d, want 2", g.EventListeners.Count)
	}
	if !g.EventListeners.LinksToFunctions {
		t.Error("aggregate should link to the function group")
	}

	onlyEvents := modelWith(nil, 0, structure.Call{From: ast.GlobalContext, To: ast.EventListenerMethod})
	g = BuildCallGraph(onlyEvents, DefaultLimits())
	if g.EventListeners == nil || g.EventListeners.LinksToFunctions {
		t.Errorf("aggregate = %+v, want unlinked", g.EventListeners)
	}
}

func TestBuildCallGraph_Empty(t *testing.T) {
	g := BuildCallGraph(structure.NewModel(), DefaultLimits())
	if !g.Empty() {
		t.Errorf("graph = %+v, want empty", g)
	}
}

func TestBuild_DefaultsForZeroLimits(t *testing.T) {
	d := Build(modelWith(nil, 12), Limits{})
	state, _ := d.Class.Entry(EntryState, StateEntry)
	if len(state.Members) != 10 || state.More != 2 {
		t.Errorf("state members = %d more = %d, want 10/2", len(state.Members), state.More)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	m := modelWith([]string{"a", "b"}, 3, structure.Call{From: "a", To: "b"})
	first := Build(m, DefaultLimits())
	second := Build(m, DefaultLimits())
	if fmt.Sprintf("%+v", first) != fmt.Sprintf("%+v", second) {
		t.Error("Build is not deterministic")
	}
}
