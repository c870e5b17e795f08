// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

// GlobalContext is the function name reported for code outside any named
// function.
const GlobalContext = "global"

// EventListenerMethod is the member call counted as an event listener
// registration.
const EventListenerMethod = "addEventListener"

// Frame is the traversal context handed to visitors.
//
// Frames are values. Each recursion level gets its own copy, so a function
// context set while descending into a function body is gone once the walk
// returns to the enclosing level.
type Frame struct {
	// Parent is the node whose field holds the visited node, nil at the root.
	Parent *Node

	// Function is the nearest enclosing function-like node, nil at top level.
	// For a function node itself this is the function, not its encloser.
	Function *Node

	// FunctionName is the resolved name of Function. Anonymous functions
	// inherit the name of the enclosing context; top level is GlobalContext.
	FunctionName string

	// Depth is the nesting depth; the root is at depth 0.
	Depth int
}

// Visitor receives every node reached by Walk.
type Visitor interface {
	Visit(n *Node, f Frame)
}

// VisitorFunc adapts a plain function to Visitor.
type VisitorFunc func(n *Node, f Frame)

// Visit calls fn(n, f).
func (fn VisitorFunc) Visit(n *Node, f Frame) { fn(n, f) }

// Walk traverses the tree rooted at root depth-first.
//
// Description:
//
//	Every node reachable through fields and lists is visited exactly once,
//	in field order then list order. All visitors see a node before any of
//	its descendants. Scalars and nil values end recursion. Fields named
//	ParentField are skipped so back-references cannot loop. Node kinds the
//	walker does not know are traversed like any other node.
//
// Inputs:
//
//	root     - The tree root. A nil root is a no-op.
//	visitors - Called in order for each node.
//
// Thread Safety:
//
//	Walk holds no state between calls. Concurrent walks over the same
//	tree are safe as long as visitors do not mutate it.
func Walk(root *Node, visitors ...Visitor) {
	if root == nil {
		return
	}
	walkNode(root, Frame{FunctionName: GlobalContext}, visitors)
}

func walkNode(n *Node, f Frame, visitors []Visitor) {
	if n.Kind.IsFunction() {
		f.FunctionName = functionContextName(n, f)
		f.Function = n
	}

	for _, v := range visitors {
		v.Visit(n, f)
	}

	child := Frame{
		Parent:       n,
		Function:     f.Function,
		FunctionName: f.FunctionName,
		Depth:        f.Depth + 1,
	}
	for _, field := range n.Fields {
		if field.Name == ParentField {
			continue
		}
		walkValue(field.Value, child, visitors)
	}
}

func walkValue(v Value, f Frame, visitors []Visitor) {
	switch val := v.(type) {
	case *Node:
		if val != nil {
			walkNode(val, f, visitors)
		}
	case List:
		for _, e := range val {
			walkValue(e, f, visitors)
		}
	}
}

// functionContextName resolves the name a function contributes to the
// context of everything inside it.
//
// The function's own id wins. Otherwise the binding it is the value of is
// used: a variable declarator, a method or property key, or the left side
// of an assignment. With none of those the enclosing name carries through.
func functionContextName(fn *Node, f Frame) string {
	if name := fn.Child("id").Name(); name != "" {
		return name
	}
	if name := BindingName(fn, f.Parent); name != "" {
		return name
	}
	if f.FunctionName == "" {
		return GlobalContext
	}
	return f.FunctionName
}

// BindingName returns the name that parent binds value to, or "".
func BindingName(value, parent *Node) string {
	if parent == nil {
		return ""
	}
	switch parent.Kind {
	case KindVariableDeclarator:
		if parent.Child("init") == value {
			return parent.Child("id").Name()
		}
	case KindMethodDefinition, KindPropertyDefinition, KindProperty:
		if parent.Child("value") == value {
			return parent.Child("key").Name()
		}
	case KindAssignmentExpression:
		if parent.Child("right") == value {
			left := parent.Child("left")
			if left.Is(KindMemberExpression) {
				return PropertyName(left)
			}
			return left.Name()
		}
	}
	return ""
}

// Name returns the identifier text of an Identifier, or "#name" for a
// PrivateIdentifier. Any other node, or nil, yields "".
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindIdentifier:
		return n.Str("name")
	case KindPrivateIdentifier:
		return "#" + n.Str("name")
	}
	return ""
}

// PropertyName returns the accessed property name of a MemberExpression,
// or "" when the property is not an identifier.
func PropertyName(member *Node) string {
	if !member.Is(KindMemberExpression) {
		return ""
	}
	return member.Child("property").Name()
}
