// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast holds the syntax tree model shared by every analysis pass,
// the generic walker over it, and the parsers that produce it.
//
// Trees are ESTree shaped: each node carries a type tag, an ordered list of
// named fields, and an optional source span. Field values are another node,
// an ordered list of values, or a scalar. Consumers only ever see this model,
// so a tree decoded from ESTree JSON and a tree lowered from tree-sitter are
// interchangeable.
package ast

import "strconv"

// Kind is the closed set of node kinds the analysis passes dispatch on.
//
// Any type tag outside this set maps to KindOther. Walking never depends on
// Kind, so unknown node shapes are still traversed.
type Kind int

const (
	KindOther Kind = iota
	KindProgram
	KindFunctionDeclaration
	KindFunctionExpression
	KindArrowFunctionExpression
	KindCallExpression
	KindNewExpression
	KindMemberExpression
	KindAssignmentExpression
	KindIdentifier
	KindPrivateIdentifier
	KindLiteral
	KindVariableDeclaration
	KindVariableDeclarator
	KindClassDeclaration
	KindClassExpression
	KindClassBody
	KindMethodDefinition
	KindPropertyDefinition
	KindProperty
	KindImportDeclaration
	KindImportSpecifier
	KindImportDefaultSpecifier
	KindImportNamespaceSpecifier
	KindExportNamedDeclaration
	KindExportDefaultDeclaration
	KindExportAllDeclaration
	KindExportSpecifier
	KindAssignmentPattern
	KindRestElement
	KindObjectPattern
	KindArrayPattern
)

var kindNames = [...]string{
	KindOther:                    "Other",
	KindProgram:                  "Program",
	KindFunctionDeclaration:      "FunctionDeclaration",
	KindFunctionExpression:       "FunctionExpression",
	KindArrowFunctionExpression:  "ArrowFunctionExpression",
	KindCallExpression:           "CallExpression",
	KindNewExpression:            "NewExpression",
	KindMemberExpression:         "MemberExpression",
	KindAssignmentExpression:     "AssignmentExpression",
	KindIdentifier:               "Identifier",
	KindPrivateIdentifier:        "PrivateIdentifier",
	KindLiteral:                  "Literal",
	KindVariableDeclaration:      "VariableDeclaration",
	KindVariableDeclarator:       "VariableDeclarator",
	KindClassDeclaration:         "ClassDeclaration",
	KindClassExpression:          "ClassExpression",
	KindClassBody:                "ClassBody",
	KindMethodDefinition:         "MethodDefinition",
	KindPropertyDefinition:       "PropertyDefinition",
	KindProperty:                 "Property",
	KindImportDeclaration:        "ImportDeclaration",
	KindImportSpecifier:          "ImportSpecifier",
	KindImportDefaultSpecifier:   "ImportDefaultSpecifier",
	KindImportNamespaceSpecifier: "ImportNamespaceSpecifier",
	KindExportNamedDeclaration:   "ExportNamedDeclaration",
	KindExportDefaultDeclaration: "ExportDefaultDeclaration",
	KindExportAllDeclaration:     "ExportAllDeclaration",
	KindExportSpecifier:          "ExportSpecifier",
	KindAssignmentPattern:        "AssignmentPattern",
	KindRestElement:              "RestElement",
	KindObjectPattern:            "ObjectPattern",
	KindArrayPattern:             "ArrayPattern",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if Kind(k) == KindOther {
			continue
		}
		m[name] = Kind(k)
	}
	return m
}()

// String returns the ESTree type name for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// KindOf maps a node type tag to its Kind. Unknown tags yield KindOther.
func KindOf(typeTag string) Kind {
	if k, ok := kindByName[typeTag]; ok {
		return k
	}
	return KindOther
}

// IsFunction reports whether the kind opens a new function context.
func (k Kind) IsFunction() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindArrowFunctionExpression:
		return true
	}
	return false
}

// ParentField is the conventional name of a back-reference to the parent
// node. The walker never descends into it.
const ParentField = "parent"

// Span is the source region covered by a node. Lines are 1-based.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Value is a field value: *Node, List, String, Number or Bool.
// A nil Value means the field is absent or null.
type Value interface {
	isValue()
}

// List is an ordered sequence of values. Elements may be nil (array holes).
type List []Value

// String is a string scalar.
type String string

// Number is a numeric scalar.
type Number float64

// Bool is a boolean scalar.
type Bool bool

func (*Node) isValue()  {}
func (List) isValue()   {}
func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}

// Field is one named slot of a node.
type Field struct {
	Name  string
	Value Value
}

// Node is a single syntax tree node.
//
// Fields keep the order the producer emitted them in. The walker visits
// fields in that order, which is what makes traversal deterministic.
type Node struct {
	// Kind is the dispatch kind derived from Type.
	Kind Kind

	// Type is the raw type tag, e.g. "FunctionDeclaration" or, for nodes
	// a parser did not lower, its native tag such as "template_string".
	Type string

	// Fields are the node's named slots in producer order.
	Fields []Field

	// Span is the source region, nil when the producer had no locations.
	Span *Span
}

// NewNode creates a node whose Kind is derived from typeTag.
func NewNode(typeTag string, span *Span, fields ...Field) *Node {
	return &Node{
		Kind:   KindOf(typeTag),
		Type:   typeTag,
		Fields: fields,
		Span:   span,
	}
}

// Set appends a field, or replaces the value of an existing field with the
// same name. Nil values are kept so that null fields survive round trips.
func (n *Node) Set(name string, v Value) *Node {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			n.Fields[i].Value = v
			return n
		}
	}
	n.Fields = append(n.Fields, Field{Name: name, Value: v})
	return n
}

// Field returns the value of the named field, or nil.
func (n *Node) Field(name string) Value {
	if n == nil {
		return nil
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Child returns the named field when it holds a node, otherwise nil.
func (n *Node) Child(name string) *Node {
	c, _ := n.Field(name).(*Node)
	return c
}

// Children returns the nodes in the named list field. Non-node elements
// are skipped. A field holding a single node yields a one-element slice.
func (n *Node) Children(name string) []*Node {
	switch v := n.Field(name).(type) {
	case List:
		out := make([]*Node, 0, len(v))
		for _, e := range v {
			if c, ok := e.(*Node); ok && c != nil {
				out = append(out, c)
			}
		}
		return out
	case *Node:
		if v != nil {
			return []*Node{v}
		}
	}
	return nil
}

// Str returns the named field as a string. Numbers and booleans are
// formatted; anything else yields "".
func (n *Node) Str(name string) string {
	switch v := n.Field(name).(type) {
	case String:
		return string(v)
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	}
	return ""
}

// Flag returns the named field as a boolean, false when absent.
func (n *Node) Flag(name string) bool {
	b, _ := n.Field(name).(Bool)
	return bool(b)
}

// Is reports whether n is non-nil and of kind k.
func (n *Node) Is(k Kind) bool {
	return n != nil && n.Kind == k
}
