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

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.lens.ast")

// JavaScriptParser turns JavaScript source into an ESTree-shaped tree.
//
// Description:
//
//	Source is parsed with tree-sitter and the concrete syntax tree is
//	lowered into the Node model. Node types the analysis passes rely on
//	(functions, classes, declarations, calls, member access, imports and
//	exports) are renamed and reshaped to their ESTree equivalents. All
//	other named nodes keep their tree-sitter type and expose their named
//	children under a "children" field, so nothing below them is lost to
//	the walker. Comments are dropped.
//
// Thread Safety:
//
//	JavaScriptParser is safe for concurrent use. Each Parse call creates
//	its own tree-sitter parser instance.
//
// Example:
//
//	parser := NewJavaScriptParser()
//	root, err := parser.Parse(ctx, content, "app.js")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	ast.Walk(root, collector)
type JavaScriptParser struct {
	options JavaScriptParserOptions
}

// JavaScriptParserOptions configures JavaScriptParser behavior.
type JavaScriptParserOptions struct {
	// MaxFileSize is the maximum source size in bytes.
	// Larger sources return ErrFileTooLarge.
	// Default: 10MB
	MaxFileSize int

	// AllowSyntaxErrors keeps trees that contain tree-sitter error nodes
	// instead of failing with *ParseError. Error regions are lowered like
	// any other unknown node.
	// Default: false
	AllowSyntaxErrors bool
}

// DefaultJavaScriptParserOptions returns the default options.
func DefaultJavaScriptParserOptions() JavaScriptParserOptions {
	return JavaScriptParserOptions{
		MaxFileSize:       10 * 1024 * 1024, // 10MB
		AllowSyntaxErrors: false,
	}
}

// JavaScriptParserOption is a functional option for configuring JavaScriptParser.
type JavaScriptParserOption func(*JavaScriptParserOptions)

// WithJSMaxFileSize sets the maximum file size for parsing.
func WithJSMaxFileSize(size int) JavaScriptParserOption {
	return func(o *JavaScriptParserOptions) {
		o.MaxFileSize = size
	}
}

// WithJSAllowSyntaxErrors sets whether trees with syntax errors are kept.
func WithJSAllowSyntaxErrors(allow bool) JavaScriptParserOption {
	return func(o *JavaScriptParserOptions) {
		o.AllowSyntaxErrors = allow
	}
}

// NewJavaScriptParser creates a new JavaScriptParser with the given options.
func NewJavaScriptParser(opts ...JavaScriptParserOption) *JavaScriptParser {
	options := DefaultJavaScriptParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &JavaScriptParser{options: options}
}

// Language returns the language name for this parser.
func (p *JavaScriptParser) Language() string {
	return "javascript"
}

// Extensions returns the file extensions this parser handles.
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx"}
}

// Parse parses JavaScript source into a tree rooted at a Program node.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Raw JavaScript source bytes. Must be valid UTF-8.
//	filePath - Name used in error messages.
//
// Outputs:
//
//	*Node - The Program node. Never nil on success.
//	error - ErrFileTooLarge, ErrInvalidContent, or *ParseError when the
//	        source has syntax errors and AllowSyntaxErrors is off.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", err)
	}

	ctx, span := tracer.Start(ctx, "JavaScriptParser.Parse")
	defer span.End()
	span.SetAttributes(
		attribute.String("file", filePath),
		attribute.Int("bytes", len(content)),
	)

	if len(content) > p.options.MaxFileSize {
		span.SetStatus(codes.Error, "file too large")
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		span.SetStatus(codes.Error, "invalid utf-8")
		return nil, ErrInvalidContent
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		span.RecordError(err)
		return nil, &ParseError{File: filePath, Message: "tree-sitter parse failed", Err: err}
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		perr := syntaxError(root, content, filePath)
		if !p.options.AllowSyntaxErrors {
			span.SetStatus(codes.Error, perr.Message)
			return nil, perr
		}
		slog.Debug("keeping javascript tree with syntax errors",
			slog.String("file", filePath),
			slog.Int("line", perr.Line))
	}

	l := &lowerer{src: content}
	program := l.lower(root)
	if program == nil {
		return nil, &ParseError{File: filePath, Message: "empty syntax tree"}
	}
	span.SetAttributes(attribute.Int("lowered_nodes", l.count))
	return program, nil
}

// syntaxError locates the first error or missing node in document order.
func syntaxError(root *sitter.Node, src []byte, filePath string) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ParseError{File: filePath, Message: "syntax error"}
	}
	pt := bad.StartPoint()
	msg := "unexpected token"
	if bad.IsMissing() {
		msg = "missing " + strconv.Quote(bad.Type())
	} else if text := nodeText(bad, src); text != "" {
		first, _, _ := strings.Cut(text, "\n")
		if len(first) > 40 {
			first = first[:40]
		}
		msg = "unexpected " + strconv.Quote(first)
	}
	return &ParseError{
		File:    filePath,
		Line:    int(pt.Row) + 1,
		Column:  int(pt.Column) + 1,
		Message: msg,
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == jsNodeError || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func nodeText(n *sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// lowerer converts one tree-sitter tree into Nodes.
type lowerer struct {
	src   []byte
	count int
}

func (l *lowerer) span(n *sitter.Node) *Span {
	s, e := n.StartPoint(), n.EndPoint()
	return &Span{
		StartLine: int(s.Row) + 1,
		StartCol:  int(s.Column) + 1,
		EndLine:   int(e.Row) + 1,
		EndCol:    int(e.Column) + 1,
	}
}

func (l *lowerer) text(n *sitter.Node) string {
	return nodeText(n, l.src)
}

func (l *lowerer) node(typeTag string, ts *sitter.Node, fields ...Field) *Node {
	l.count++
	return NewNode(typeTag, l.span(ts), fields...)
}

// lowerNamed lowers every named, non-comment child of n.
func (l *lowerer) lowerNamed(n *sitter.Node) List {
	out := List{}
	if n == nil {
		return out
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == jsNodeComment {
			continue
		}
		if lowered := l.lower(c); lowered != nil {
			out = append(out, lowered)
		}
	}
	return out
}

// hasToken reports whether n has an anonymous child of the given type.
func hasToken(n *sitter.Node, tokenType string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == tokenType {
			return true
		}
	}
	return false
}

// firstNamedOfType returns the first named child with the given type.
func firstNamedOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c != nil && c.Type() == nodeType {
			return c
		}
	}
	return nil
}

// optional wraps a lowered child so that a missing child stays a nil
// Value rather than a typed nil pointer.
func optional(n *Node) Value {
	if n == nil {
		return nil
	}
	return n
}

func (l *lowerer) lower(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}

	switch t := n.Type(); t {
	case jsNodeComment:
		return nil

	case jsNodeProgram:
		return l.node("Program", n,
			Field{"sourceType", String("module")},
			Field{"body", l.lowerNamed(n)})

	case jsNodeParenthesizedExpression:
		if inner := n.NamedChild(0); inner != nil {
			return l.lower(inner)
		}
		return l.generic(n)

	case jsNodeFunctionDeclaration, jsNodeGeneratorFunctionDecl:
		return l.lowerFunction("FunctionDeclaration", n)

	case jsNodeFunction, jsNodeFunctionExpression, jsNodeGeneratorFunction:
		return l.lowerFunction("FunctionExpression", n)

	case jsNodeArrowFunction:
		var params List
		if single := n.ChildByFieldName("parameter"); single != nil {
			params = List{l.lower(single)}
		} else {
			params = l.lowerNamed(n.ChildByFieldName("parameters"))
		}
		return l.node("ArrowFunctionExpression", n,
			Field{"id", nil},
			Field{"params", params},
			Field{"body", optional(l.lower(n.ChildByFieldName("body")))},
			Field{"async", Bool(hasToken(n, jsNodeAsync))})

	case jsNodeLexicalDeclaration, jsNodeVariableDeclaration:
		kind := jsNodeVar
		if first := n.Child(0); first != nil && !first.IsNamed() {
			kind = first.Type()
		}
		decls := List{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c != nil && c.Type() == jsNodeVariableDeclarator {
				decls = append(decls, l.lower(c))
			}
		}
		return l.node("VariableDeclaration", n,
			Field{"declarations", decls},
			Field{"kind", String(kind)})

	case jsNodeVariableDeclarator:
		return l.node("VariableDeclarator", n,
			Field{"id", optional(l.lower(n.ChildByFieldName("name")))},
			Field{"init", optional(l.lower(n.ChildByFieldName("value")))})

	case jsNodeForInStatement:
		return l.lowerForIn(n)

	case jsNodeCallExpression:
		return l.node("CallExpression", n,
			Field{"callee", optional(l.lower(n.ChildByFieldName("function")))},
			Field{"arguments", l.lowerArguments(n.ChildByFieldName("arguments"))})

	case jsNodeNewExpression:
		return l.node("NewExpression", n,
			Field{"callee", optional(l.lower(n.ChildByFieldName("constructor")))},
			Field{"arguments", l.lowerArguments(n.ChildByFieldName("arguments"))})

	case jsNodeMemberExpression:
		return l.node("MemberExpression", n,
			Field{"object", optional(l.lower(n.ChildByFieldName("object")))},
			Field{"property", optional(l.lower(n.ChildByFieldName("property")))},
			Field{"computed", Bool(false)})

	case jsNodeSubscriptExpression:
		return l.node("MemberExpression", n,
			Field{"object", optional(l.lower(n.ChildByFieldName("object")))},
			Field{"property", optional(l.lower(n.ChildByFieldName("index")))},
			Field{"computed", Bool(true)})

	case jsNodeAssignmentExpression:
		return l.node("AssignmentExpression", n,
			Field{"operator", String("=")},
			Field{"left", optional(l.lower(n.ChildByFieldName("left")))},
			Field{"right", optional(l.lower(n.ChildByFieldName("right")))})

	case jsNodeIdentifier, jsNodePropertyIdentifier, jsNodeShorthandPropertyIdent, jsNodeShorthandPropertyPattern:
		return l.node("Identifier", n, Field{"name", String(l.text(n))})

	case jsNodePrivatePropertyIdentifier:
		return l.node("PrivateIdentifier", n, Field{"name", String(strings.TrimPrefix(l.text(n), "#"))})

	case jsNodeString:
		raw := l.text(n)
		value := raw
		if len(raw) >= 2 {
			value = raw[1 : len(raw)-1]
		}
		return l.node("Literal", n, Field{"value", String(value)}, Field{"raw", String(raw)})

	case jsNodeNumber:
		raw := l.text(n)
		lit := l.node("Literal", n)
		if f, ok := parseNumber(raw); ok {
			lit.Set("value", Number(f))
		} else {
			lit.Set("value", nil)
		}
		return lit.Set("raw", String(raw))

	case jsNodeTrue, jsNodeFalse:
		return l.node("Literal", n, Field{"value", Bool(t == jsNodeTrue)}, Field{"raw", String(t)})

	case jsNodeNull:
		return l.node("Literal", n, Field{"value", nil}, Field{"raw", String(t)})

	case jsNodeAssignmentPattern:
		return l.node("AssignmentPattern", n,
			Field{"left", optional(l.lower(n.ChildByFieldName("left")))},
			Field{"right", optional(l.lower(n.ChildByFieldName("right")))})

	case jsNodeRestPattern:
		return l.node("RestElement", n, Field{"argument", optional(l.lower(n.NamedChild(0)))})

	case jsNodePair:
		return l.node("Property", n,
			Field{"key", optional(l.lowerKey(n.ChildByFieldName("key")))},
			Field{"value", optional(l.lower(n.ChildByFieldName("value")))},
			Field{"kind", String("init")},
			Field{"computed", Bool(isComputed(n.ChildByFieldName("key")))})

	case jsNodeClassDeclaration:
		return l.lowerClass("ClassDeclaration", n)

	case jsNodeClass:
		return l.lowerClass("ClassExpression", n)

	case jsNodeClassBody:
		members := List{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c == nil || c.Type() == jsNodeComment {
				continue
			}
			if m := l.lower(c); m != nil {
				members = append(members, m)
			}
		}
		return l.node("ClassBody", n, Field{"body", members})

	case jsNodeMethodDefinition:
		return l.lowerMethod(n)

	case jsNodeFieldDefinition:
		key := n.ChildByFieldName("property")
		return l.node("PropertyDefinition", n,
			Field{"key", optional(l.lowerKey(key))},
			Field{"value", optional(l.lower(n.ChildByFieldName("value")))},
			Field{"computed", Bool(isComputed(key))},
			Field{"static", Bool(hasToken(n, jsNodeStatic))})

	case jsNodeImportStatement:
		return l.lowerImport(n)

	case jsNodeExportStatement:
		return l.lowerExport(n)
	}

	if c, ok := estreeContainers[n.Type()]; ok {
		return l.node(c[0], n, Field{c[1], l.lowerNamed(n)})
	}
	return l.generic(n)
}

// generic keeps the tree-sitter type and exposes named children in order.
// Leaves carry their source text.
func (l *lowerer) generic(n *sitter.Node) *Node {
	out := l.node(n.Type(), n)
	if n.NamedChildCount() == 0 {
		return out.Set("raw", String(l.text(n)))
	}
	return out.Set("children", l.lowerNamed(n))
}

func (l *lowerer) lowerArguments(args *sitter.Node) List {
	if args == nil {
		return List{}
	}
	// Tagged templates pass the template itself as the argument node.
	if args.Type() != "arguments" {
		if a := l.lower(args); a != nil {
			return List{a}
		}
		return List{}
	}
	return l.lowerNamed(args)
}

func (l *lowerer) lowerFunction(typeTag string, n *sitter.Node) *Node {
	return l.node(typeTag, n,
		Field{"id", optional(l.lower(n.ChildByFieldName("name")))},
		Field{"params", l.lowerNamed(n.ChildByFieldName("parameters"))},
		Field{"body", optional(l.lower(n.ChildByFieldName("body")))},
		Field{"async", Bool(hasToken(n, jsNodeAsync))},
		Field{"generator", Bool(hasToken(n, jsNodeStar) || n.Type() == jsNodeGeneratorFunction || n.Type() == jsNodeGeneratorFunctionDecl)})
}

// lowerForIn lowers for-in and for-of loops. A declaring head such as
// "const x" becomes a one-declarator VariableDeclaration in left.
func (l *lowerer) lowerForIn(n *sitter.Node) *Node {
	typeTag := "ForInStatement"
	if op := n.ChildByFieldName("operator"); (op != nil && op.Type() == jsNodeOf) || hasToken(n, jsNodeOf) {
		typeTag = "ForOfStatement"
	}

	leftTS := n.ChildByFieldName("left")
	var left Value = optional(l.lower(leftTS))
	if kind := forDeclarationKind(n); kind != "" && leftTS != nil {
		declarator := NewNode("VariableDeclarator", l.span(leftTS),
			Field{"id", left},
			Field{"init", optional(l.lower(n.ChildByFieldName("value")))})
		span := l.span(leftTS)
		if kw := n.ChildByFieldName("kind"); kw != nil {
			span.StartLine, span.StartCol = l.span(kw).StartLine, l.span(kw).StartCol
		}
		l.count += 2
		left = NewNode("VariableDeclaration", span,
			Field{"declarations", List{declarator}},
			Field{"kind", String(kind)})
	}

	out := l.node(typeTag, n,
		Field{"left", left},
		Field{"right", optional(l.lower(n.ChildByFieldName("right")))},
		Field{"body", optional(l.lower(n.ChildByFieldName("body")))})
	if typeTag == "ForOfStatement" {
		out.Set("await", Bool(hasToken(n, jsNodeAwait)))
	}
	return out
}

// forDeclarationKind returns var, let or const when the loop head declares
// its binding, and "" when it assigns to an existing target.
func forDeclarationKind(n *sitter.Node) string {
	if kw := n.ChildByFieldName("kind"); kw != nil {
		return kw.Type()
	}
	for _, k := range []string{jsNodeVar, jsNodeLet, jsNodeConst} {
		if hasToken(n, k) {
			return k
		}
	}
	return ""
}

func (l *lowerer) lowerClass(typeTag string, n *sitter.Node) *Node {
	var super Value
	if heritage := firstNamedOfType(n, jsNodeClassHeritage); heritage != nil {
		super = optional(l.lower(heritage.NamedChild(0)))
	}
	return l.node(typeTag, n,
		Field{"id", optional(l.lower(n.ChildByFieldName("name")))},
		Field{"superClass", super},
		Field{"body", optional(l.lower(n.ChildByFieldName("body")))})
}

func (l *lowerer) lowerMethod(n *sitter.Node) *Node {
	keyNode := n.ChildByFieldName("name")
	key := l.lowerKey(keyNode)
	static := hasToken(n, jsNodeStatic)

	kind := "method"
	switch {
	case hasToken(n, jsNodeGet):
		kind = "get"
	case hasToken(n, jsNodeSet):
		kind = "set"
	case !static && key.Name() == "constructor":
		kind = "constructor"
	}

	value := l.node("FunctionExpression", n,
		Field{"id", nil},
		Field{"params", l.lowerNamed(n.ChildByFieldName("parameters"))},
		Field{"body", optional(l.lower(n.ChildByFieldName("body")))},
		Field{"async", Bool(hasToken(n, jsNodeAsync))},
		Field{"generator", Bool(hasToken(n, jsNodeStar))})

	return l.node("MethodDefinition", n,
		Field{"key", optional(key)},
		Field{"value", value},
		Field{"kind", String(kind)},
		Field{"computed", Bool(isComputed(keyNode))},
		Field{"static", Bool(static)})
}

// lowerKey lowers a property or method key, unwrapping computed names.
func (l *lowerer) lowerKey(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}
	if n.Type() == jsNodeComputedPropertyName {
		return l.lower(n.NamedChild(0))
	}
	return l.lower(n)
}

func isComputed(n *sitter.Node) bool {
	return n != nil && n.Type() == jsNodeComputedPropertyName
}

func (l *lowerer) lowerImport(n *sitter.Node) *Node {
	specs := List{}
	if clause := firstNamedOfType(n, jsNodeImportClause); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			c := clause.NamedChild(i)
			if c == nil {
				continue
			}
			switch c.Type() {
			case jsNodeIdentifier:
				specs = append(specs, l.node("ImportDefaultSpecifier", c, Field{"local", l.lower(c)}))
			case jsNodeNamespaceImport:
				specs = append(specs, l.node("ImportNamespaceSpecifier", c,
					Field{"local", optional(l.lower(firstNamedOfType(c, jsNodeIdentifier)))}))
			case jsNodeNamedImports:
				for j := 0; j < int(c.NamedChildCount()); j++ {
					s := c.NamedChild(j)
					if s == nil || s.Type() != jsNodeImportSpecifier {
						continue
					}
					// Each field gets its own node so the tree stays a tree.
					name := s.ChildByFieldName("name")
					imported, local := l.lower(name), l.lower(name)
					if alias := s.ChildByFieldName("alias"); alias != nil {
						local = l.lower(alias)
					}
					specs = append(specs, l.node("ImportSpecifier", s,
						Field{"imported", optional(imported)},
						Field{"local", optional(local)}))
				}
			}
		}
	}
	return l.node("ImportDeclaration", n,
		Field{"specifiers", specs},
		Field{"source", optional(l.lower(n.ChildByFieldName("source")))})
}

func (l *lowerer) lowerExport(n *sitter.Node) *Node {
	source := optional(l.lower(n.ChildByFieldName("source")))

	if hasToken(n, jsNodeDefault) {
		target := n.ChildByFieldName("declaration")
		if target == nil {
			target = n.ChildByFieldName("value")
		}
		decl := l.lower(target)
		// ESTree models anonymous default functions and classes as
		// declarations with a null id.
		switch {
		case decl.Is(KindFunctionExpression):
			decl.Kind, decl.Type = KindFunctionDeclaration, "FunctionDeclaration"
		case decl.Is(KindClassExpression):
			decl.Kind, decl.Type = KindClassDeclaration, "ClassDeclaration"
		}
		return l.node("ExportDefaultDeclaration", n, Field{"declaration", optional(decl)})
	}

	if ns := firstNamedOfType(n, jsNodeNamespaceExport); ns != nil {
		return l.node("ExportAllDeclaration", n,
			Field{"exported", optional(l.lower(ns.NamedChild(0)))},
			Field{"source", source})
	}
	if hasToken(n, jsNodeStar) {
		return l.node("ExportAllDeclaration", n,
			Field{"exported", nil},
			Field{"source", source})
	}

	specs := List{}
	if clause := firstNamedOfType(n, jsNodeExportClause); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			s := clause.NamedChild(i)
			if s == nil || s.Type() != jsNodeExportSpecifier {
				continue
			}
			name := s.ChildByFieldName("name")
			local, exported := l.lower(name), l.lower(name)
			if alias := s.ChildByFieldName("alias"); alias != nil {
				exported = l.lower(alias)
			}
			specs = append(specs, l.node("ExportSpecifier", s,
				Field{"local", optional(local)},
				Field{"exported", optional(exported)}))
		}
	}
	return l.node("ExportNamedDeclaration", n,
		Field{"declaration", optional(l.lower(n.ChildByFieldName("declaration")))},
		Field{"specifiers", specs},
		Field{"source", source})
}

// parseNumber handles decimal, hex, octal and binary literals with
// optional numeric separators. BigInt literals keep only their raw text.
func parseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, "_", "")
	if strings.HasSuffix(s, "n") {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i), true
	}
	return 0, false
}
