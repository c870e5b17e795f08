// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structure

import (
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
)

// Extractor is a Visitor that builds a Model.
//
// Description:
//
//	Each node kind of interest appends facts to the model as it is
//	visited. Missing names degrade to the Placeholder constants and are
//	logged at debug level; extraction never fails. Call attribution uses
//	the frame's function context, so the walker's naming rules decide
//	which function a call belongs to.
//
// Thread Safety:
//
//	An Extractor is single use and must not be shared between walks.
type Extractor struct {
	model  Model
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger used for degradation messages.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor returns an empty Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		model:  NewModel(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract walks root once and returns its structural model.
func Extract(root *ast.Node, opts ...ExtractorOption) Model {
	e := NewExtractor(opts...)
	ast.Walk(root, e)
	return e.Model()
}

// Model returns the facts gathered so far.
func (e *Extractor) Model() Model {
	return e.model
}

// Visit implements ast.Visitor.
func (e *Extractor) Visit(n *ast.Node, f ast.Frame) {
	switch n.Kind {
	case ast.KindClassDeclaration:
		e.addClass(n)
	case ast.KindFunctionDeclaration:
		e.addFunctionDeclaration(n)
	case ast.KindVariableDeclaration:
		e.addDeclarators(n)
	case ast.KindCallExpression:
		e.addCall(n, f)
	case ast.KindImportDeclaration:
		e.addImport(n)
	case ast.KindExportNamedDeclaration, ast.KindExportDefaultDeclaration:
		e.addExports(n)
	}
}

func (e *Extractor) addClass(n *ast.Node) {
	name := n.Child("id").Name()
	if name == "" {
		name = PlaceholderClass
	}
	class := Class{
		Name:       name,
		Methods:    []Method{},
		Properties: []Property{},
		Line:       line(n),
	}

	if super := n.Child("superClass"); super != nil {
		class.Extends = memberPath(super)
		if class.Extends == "" {
			e.logger.Debug("superclass reference has no static name",
				slog.String("class", name),
				slog.String("super_type", super.Type))
			class.Extends = PlaceholderSuper
		}
	}

	for _, member := range n.Child("body").Children("body") {
		switch member.Kind {
		case ast.KindMethodDefinition:
			kind := member.Str("kind")
			if kind == "" {
				kind = "method"
			}
			class.Methods = append(class.Methods, Method{
				Name:     keyName(member),
				Kind:     kind,
				IsStatic: member.Flag("static"),
			})
		case ast.KindPropertyDefinition:
			class.Properties = append(class.Properties, Property{
				Name:     keyName(member),
				IsStatic: member.Flag("static"),
			})
		}
	}

	e.model.Classes = append(e.model.Classes, class)
}

func (e *Extractor) addFunctionDeclaration(n *ast.Node) {
	name := n.Child("id").Name()
	if name == "" {
		return
	}
	e.model.Functions = append(e.model.Functions, Function{
		Name:   name,
		Params: paramNames(n),
		Line:   line(n),
	})
}

func (e *Extractor) addDeclarators(decl *ast.Node) {
	kind := decl.Str("kind")
	if kind == "" {
		kind = PlaceholderDeclKind
	}
	for _, d := range decl.Children("declarations") {
		if !d.Is(ast.KindVariableDeclarator) {
			continue
		}
		name := d.Child("id").Name()
		if name == "" {
			name = PlaceholderBinding
		}

		value := d.Child("init")
		if value.Is(ast.KindFunctionExpression) || value.Is(ast.KindArrowFunctionExpression) {
			e.model.Functions = append(e.model.Functions, Function{
				Name:    name,
				Params:  paramNames(value),
				IsArrow: value.Is(ast.KindArrowFunctionExpression),
				Line:    line(d),
			})
			continue
		}
		e.model.Variables = append(e.model.Variables, Variable{
			Name:            name,
			DeclarationKind: kind,
			Line:            line(d),
		})
	}
}

func (e *Extractor) addCall(n *ast.Node, f ast.Frame) {
	callee := n.Child("callee")
	var to string
	switch {
	case callee.Is(ast.KindIdentifier):
		to = callee.Name()
	case callee.Is(ast.KindMemberExpression):
		to = ast.PropertyName(callee)
	}
	if to == "" {
		return
	}
	from := f.FunctionName
	if from == "" {
		from = ast.GlobalContext
	}
	e.model.Calls = append(e.model.Calls, Call{From: from, To: to, Line: line(n)})
}

func (e *Extractor) addImport(n *ast.Node) {
	imp := Import{
		Source: n.Child("source").Str("value"),
		Locals: []string{},
	}
	for _, spec := range n.Children("specifiers") {
		if local := spec.Child("local").Name(); local != "" {
			imp.Locals = append(imp.Locals, local)
		}
	}
	e.model.Imports = append(e.model.Imports, imp)
}

func (e *Extractor) addExports(n *ast.Node) {
	decl := n.Child("declaration")
	switch {
	case decl == nil:
		for _, spec := range n.Children("specifiers") {
			if name := exportedName(spec.Child("exported")); name != "" {
				e.model.Exports = append(e.model.Exports, Export{Name: name})
			}
		}
	case decl.Is(ast.KindVariableDeclaration):
		for _, d := range decl.Children("declarations") {
			if name := d.Child("id").Name(); name != "" {
				e.model.Exports = append(e.model.Exports, Export{Name: name})
			}
		}
	case decl.Is(ast.KindIdentifier):
		e.model.Exports = append(e.model.Exports, Export{Name: decl.Name()})
	default:
		// Functions and classes; anonymous defaults carry no id.
		if name := decl.Child("id").Name(); name != "" {
			e.model.Exports = append(e.model.Exports, Export{Name: name})
		}
	}
}

func paramNames(fn *ast.Node) []string {
	params := fn.Children("params")
	out := make([]string, 0, len(params))
	for _, p := range params {
		if p.Is(ast.KindIdentifier) {
			out = append(out, p.Name())
			continue
		}
		out = append(out, PlaceholderParam)
	}
	return out
}

// keyName names a class member from its key.
func keyName(member *ast.Node) string {
	key := member.Child("key")
	switch {
	case key == nil:
		return PlaceholderKey
	case key.Is(ast.KindLiteral):
		if s := key.Str("value"); s != "" {
			return s
		}
	case member.Flag("computed"):
		return PlaceholderKey
	}
	if name := key.Name(); name != "" {
		return name
	}
	return PlaceholderKey
}

// memberPath renders an identifier or a non-computed member chain such as
// React.Component. Anything else yields "".
func memberPath(n *ast.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case ast.KindIdentifier:
		return n.Name()
	case ast.KindMemberExpression:
		if n.Flag("computed") {
			return ""
		}
		obj := memberPath(n.Child("object"))
		prop := ast.PropertyName(n)
		if obj == "" || prop == "" {
			return ""
		}
		return strings.Join([]string{obj, prop}, ".")
	}
	return ""
}

func exportedName(n *ast.Node) string {
	if n.Is(ast.KindLiteral) {
		return n.Str("value")
	}
	return n.Name()
}

func line(n *ast.Node) int {
	if n == nil || n.Span == nil {
		return 0
	}
	return n.Span.StartLine
}
