// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package structure extracts typed structural facts (classes, functions,
// variables, calls, imports, exports) from a syntax tree.
package structure

// Placeholder names used when a fact cannot be named from the tree.
const (
	PlaceholderParam    = "param"
	PlaceholderClass    = "AnonymousClass"
	PlaceholderSuper    = "Unknown"
	PlaceholderKey      = "[computed]"
	PlaceholderBinding  = "pattern"
	PlaceholderDeclKind = "var"
)

// Model is the structural summary of one tree. Every slice is non-nil and
// in traversal order. Duplicates are kept.
type Model struct {
	Classes   []Class    `json:"classes"`
	Functions []Function `json:"functions"`
	Variables []Variable `json:"variables"`
	Calls     []Call     `json:"calls"`
	Imports   []Import   `json:"imports"`
	Exports   []Export   `json:"exports"`
}

// NewModel returns a Model with all sequences initialized.
func NewModel() Model {
	return Model{
		Classes:   []Class{},
		Functions: []Function{},
		Variables: []Variable{},
		Calls:     []Call{},
		Imports:   []Import{},
		Exports:   []Export{},
	}
}

// Class is a class declaration.
type Class struct {
	Name string `json:"name"`

	// Extends is the superclass reference, "" when the class has none.
	Extends string `json:"extends,omitempty"`

	Methods    []Method   `json:"methods"`
	Properties []Property `json:"properties"`
	Line       int        `json:"line,omitempty"`
}

// Method is a method definition inside a class body.
type Method struct {
	Name string `json:"name"`

	// Kind is constructor, method, get or set.
	Kind     string `json:"kind"`
	IsStatic bool   `json:"is_static"`
}

// Property is a field definition inside a class body.
type Property struct {
	Name     string `json:"name"`
	IsStatic bool   `json:"is_static"`
}

// Function is a named function: a declaration, or a function or arrow
// expression bound directly by a variable declarator.
type Function struct {
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	IsArrow bool     `json:"is_arrow"`
	Line    int      `json:"line,omitempty"`
}

// Variable is a declarator whose value is not a function.
type Variable struct {
	Name            string `json:"name"`
	DeclarationKind string `json:"declaration_kind"`
	Line            int    `json:"line,omitempty"`
}

// Call is one call site. From is the enclosing function context; To is the
// bare callee name. Calls are matched by name only, so same-named functions
// in different scopes are not told apart.
type Call struct {
	From string `json:"from"`
	To   string `json:"to"`
	Line int    `json:"line,omitempty"`
}

// Import is an import declaration.
type Import struct {
	Source string   `json:"source"`
	Locals []string `json:"locals"`
}

// Export is a named export.
type Export struct {
	Name string `json:"name"`
}

// FunctionNames returns the distinct function names in first-seen order.
func (m Model) FunctionNames() []string {
	seen := make(map[string]bool, len(m.Functions))
	out := make([]string, 0, len(m.Functions))
	for _, fn := range m.Functions {
		if seen[fn.Name] {
			continue
		}
		seen[fn.Name] = true
		out = append(out, fn.Name)
	}
	return out
}
