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
	"unicode"
)

// Mermaid renders graphs as Mermaid diagram scripts.
type Mermaid struct{}

// ClassDiagram renders g as a Mermaid classDiagram.
func (Mermaid) ClassDiagram(g ClassGraph) string {
	var b strings.Builder
	b.WriteString("classDiagram\n")
	if g.Empty() {
		b.WriteString("  note \"No classes or functions found\"\n")
		return b.String()
	}

	ids := newIDAllocator()
	for _, e := range g.Entries {
		id := ids.id(string(e.Kind), e.Name)
		fmt.Fprintf(&b, "  class %s[\"%s\"] {\n", id, mermaidLabel(e.Name))
		switch e.Kind {
		case EntryModule:
			b.WriteString("    <<module>>\n")
		case EntryState:
			b.WriteString("    <<state>>\n")
		}
		for _, m := range e.Members {
			b.WriteString("    " + memberLine(m) + "\n")
		}
		if e.More > 0 {
			fmt.Fprintf(&b, "    +%d more\n", e.More)
		}
		b.WriteString("  }\n")
	}
	for _, inh := range g.Inheritance {
		// Parents that are not classes in this file get their own box.
		parentScope := externalScope
		if _, ok := g.Entry(EntryClass, inh.Parent); ok {
			parentScope = string(EntryClass)
		}
		fmt.Fprintf(&b, "  %s <|-- %s\n", ids.id(parentScope, inh.Parent), ids.id(string(EntryClass), inh.Child))
	}
	for _, u := range g.Uses {
		fmt.Fprintf(&b, "  %s --> %s : %s\n", ids.id(string(EntryModule), u.From), ids.id(string(EntryState), u.To), u.Label)
	}
	return b.String()
}

func memberLine(m Member) string {
	line := "+" + mermaidLabel(m.Signature)
	if m.IsStatic {
		line += "$"
	}
	return line
}

// CallGraph renders g as a left-to-right Mermaid flowchart. Function nodes
// sit in a "Functions" subgraph that the event listener node links to.
func (Mermaid) CallGraph(g CallGraph) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")
	if g.Empty() {
		b.WriteString("  empty[\"No function calls found\"]\n")
		return b.String()
	}

	ids := make(map[string]string)
	nodeID := func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		id := fmt.Sprintf("f%d", len(ids))
		ids[name] = id
		return id
	}

	functions := g.Nodes
	if len(g.Edges) == 0 {
		functions = g.Standalone
	}
	if len(functions) > 0 || g.StandaloneMore > 0 {
		b.WriteString("  subgraph functions [\"Functions\"]\n")
		for _, name := range functions {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", nodeID(name), mermaidLabel(name))
		}
		if g.StandaloneMore > 0 {
			fmt.Fprintf(&b, "    more[\"+%d more\"]\n", g.StandaloneMore)
		}
		b.WriteString("  end\n")
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s --> %s\n", nodeID(e.From), nodeID(e.To))
	}
	if ev := g.EventListeners; ev != nil {
		fmt.Fprintf(&b, "  events((\"%s (%d)\"))\n", EventListenersNode, ev.Count)
		if ev.LinksToFunctions {
			b.WriteString("  events --> functions\n")
		}
	}
	return b.String()
}

// externalScope holds superclasses declared outside the analyzed file.
const externalScope = "external"

// idAllocator hands out one Mermaid identifier per (scope, name) pair.
// Names that sanitize to an identifier already taken get a numeric suffix.
type idAllocator struct {
	ids  map[string]string
	used map[string]bool
}

func newIDAllocator() *idAllocator {
	return &idAllocator{ids: make(map[string]string), used: make(map[string]bool)}
}

func (a *idAllocator) id(scope, name string) string {
	key := scope + "\x00" + name
	if id, ok := a.ids[key]; ok {
		return id
	}
	base := mermaidID(name)
	id := base
	for n := 2; a.used[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	a.ids[key] = id
	a.used[id] = true
	return id
}

// mermaidID maps a raw name to a Mermaid-safe identifier.
func mermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	id := b.String()
	if id == "" || unicode.IsDigit([]rune(id)[0]) {
		id = "n_" + id
	}
	return id
}

// mermaidLabel escapes text placed inside quoted labels and member lines.
func mermaidLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;")
	return r.Replace(s)
}
