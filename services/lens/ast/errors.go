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
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when source exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidContent is returned when source is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrEmptyTree is returned when a decoded tree has no root node.
	ErrEmptyTree = errors.New("syntax tree is empty")
)

// ParseError reports source that could not be turned into a tree.
//
// It is fatal for the analysis that hit it: no partial tree is returned and
// callers do not retry.
type ParseError struct {
	// File is the name the source was parsed under.
	File string

	// Line and Column locate the first problem, 1-based. Zero when unknown.
	Line   int
	Column int

	// Message describes the problem.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ParseError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", loc, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
