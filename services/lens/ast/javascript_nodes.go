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

// Tree-sitter JavaScript node types lowered by JavaScriptParser.
const (
	// Top level
	jsNodeProgram = "program"
	jsNodeComment = "comment"
	jsNodeError   = "ERROR"

	// Imports
	jsNodeImportStatement = "import_statement"
	jsNodeImportClause    = "import_clause"
	jsNodeNamespaceImport = "namespace_import"
	jsNodeNamedImports    = "named_imports"
	jsNodeImportSpecifier = "import_specifier"

	// Exports
	jsNodeExportStatement = "export_statement"
	jsNodeExportClause    = "export_clause"
	jsNodeExportSpecifier = "export_specifier"
	jsNodeNamespaceExport = "namespace_export"

	// Functions
	jsNodeFunctionDeclaration   = "function_declaration"
	jsNodeGeneratorFunctionDecl = "generator_function_declaration"
	jsNodeFunction              = "function"
	jsNodeFunctionExpression    = "function_expression"
	jsNodeGeneratorFunction     = "generator_function"
	jsNodeArrowFunction         = "arrow_function"
	jsNodeFormalParameters      = "formal_parameters"

	// Patterns
	jsNodeAssignmentPattern = "assignment_pattern"
	jsNodeRestPattern       = "rest_pattern"
	jsNodeObjectPattern     = "object_pattern"
	jsNodeArrayPattern      = "array_pattern"

	// Classes
	jsNodeClassDeclaration     = "class_declaration"
	jsNodeClass                = "class"
	jsNodeClassHeritage        = "class_heritage"
	jsNodeClassBody            = "class_body"
	jsNodeMethodDefinition     = "method_definition"
	jsNodeFieldDefinition      = "field_definition"
	jsNodeComputedPropertyName = "computed_property_name"

	// Declarations
	jsNodeLexicalDeclaration  = "lexical_declaration"
	jsNodeVariableDeclaration = "variable_declaration"
	jsNodeVariableDeclarator  = "variable_declarator"

	// Statements
	jsNodeForInStatement = "for_in_statement"

	// Expressions
	jsNodeCallExpression          = "call_expression"
	jsNodeNewExpression           = "new_expression"
	jsNodeMemberExpression        = "member_expression"
	jsNodeSubscriptExpression     = "subscript_expression"
	jsNodeAssignmentExpression    = "assignment_expression"
	jsNodeParenthesizedExpression = "parenthesized_expression"
	jsNodeObject                  = "object"
	jsNodeArray                   = "array"
	jsNodePair                    = "pair"
	jsNodeStatementBlock          = "statement_block"

	// Identifiers and literals
	jsNodeIdentifier                = "identifier"
	jsNodePropertyIdentifier        = "property_identifier"
	jsNodeShorthandPropertyIdent    = "shorthand_property_identifier"
	jsNodeShorthandPropertyPattern  = "shorthand_property_identifier_pattern"
	jsNodePrivatePropertyIdentifier = "private_property_identifier"
	jsNodeString                    = "string"
	jsNodeNumber                    = "number"
	jsNodeTrue                      = "true"
	jsNodeFalse                     = "false"
	jsNodeNull                      = "null"

	// Keywords (anonymous nodes)
	jsNodeAsync   = "async"
	jsNodeStatic  = "static"
	jsNodeGet     = "get"
	jsNodeSet     = "set"
	jsNodeStar    = "*"
	jsNodeDefault = "default"
	jsNodeVar     = "var"
	jsNodeLet     = "let"
	jsNodeConst   = "const"
	jsNodeOf      = "of"
	jsNodeAwait   = "await"
)

// estreeContainers maps tree-sitter node types that are plain ordered
// containers to their ESTree type and list field.
var estreeContainers = map[string][2]string{
	jsNodeObject:         {"ObjectExpression", "properties"},
	jsNodeArray:          {"ArrayExpression", "elements"},
	jsNodeStatementBlock: {"BlockStatement", "body"},
	jsNodeObjectPattern:  {"ObjectPattern", "properties"},
	jsNodeArrayPattern:   {"ArrayPattern", "elements"},
}
