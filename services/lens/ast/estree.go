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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MaxDecodeDepth bounds object/array nesting accepted by DecodeESTree.
const MaxDecodeDepth = 10000

// DecodeESTree decodes an ESTree JSON document into a tree.
//
// Description:
//
//	Objects become nodes. The "type" member sets the node's type tag and
//	the "loc" member becomes its Span; every other member becomes a field
//	in document order. encoding/json maps lose member order, so the
//	document is read token by token instead. Objects without a "type"
//	member (such as regex descriptors) become untyped KindOther nodes.
//
// Inputs:
//
//	data - The JSON document. Its top-level value must be an object.
//
// Outputs:
//
//	*Node - The root node.
//	error - *ParseError for malformed JSON, ErrEmptyTree when the top-level
//	        value is not an object.
func DecodeESTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil, &ParseError{File: "estree", Message: "invalid ESTree JSON", Err: err}
	}
	root, ok := v.(*Node)
	if !ok || root == nil {
		return nil, ErrEmptyTree
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{File: "estree", Message: "trailing data after root object"}
	}
	return root, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > MaxDecodeDepth {
		return nil, fmt.Errorf("nesting deeper than %d", MaxDecodeDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec, depth)
		case '[':
			return decodeList(dec, depth)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder, depth int) (*Node, error) {
	n := &Node{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		v, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		switch key {
		case "type":
			if s, ok := v.(String); ok {
				n.Type = string(s)
				n.Kind = KindOf(n.Type)
				continue
			}
		case "loc":
			if loc, ok := v.(*Node); ok && loc != nil {
				n.Span = spanFromLoc(loc)
				continue
			}
		}
		n.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeList(dec *json.Decoder, depth int) (List, error) {
	out := List{}
	for dec.More() {
		v, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// spanFromLoc converts an ESTree SourceLocation. ESTree columns are
// 0-based; Span columns are 1-based.
func spanFromLoc(loc *Node) *Span {
	start, end := loc.Child("start"), loc.Child("end")
	if start == nil && end == nil {
		return nil
	}
	s := &Span{}
	if start != nil {
		s.StartLine = intField(start, "line")
		s.StartCol = intField(start, "column") + 1
	}
	if end != nil {
		s.EndLine = intField(end, "line")
		s.EndCol = intField(end, "column") + 1
	}
	return s
}

func intField(n *Node, name string) int {
	if f, ok := n.Field(name).(Number); ok {
		return int(f)
	}
	return 0
}

// MarshalJSON encodes the tree back to ESTree-shaped JSON. Fields keep
// their order and "loc" is written last.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n *Node) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
	}
	if n.Type != "" {
		sep()
		buf.WriteString(`"type":`)
		writeString(buf, n.Type)
	}
	for _, f := range n.Fields {
		if f.Name == ParentField {
			continue
		}
		sep()
		writeString(buf, f.Name)
		buf.WriteByte(':')
		if err := encodeValue(buf, f.Value); err != nil {
			return err
		}
	}
	if n.Span != nil {
		sep()
		fmt.Fprintf(buf, `"loc":{"start":{"line":%d,"column":%d},"end":{"line":%d,"column":%d}}`,
			n.Span.StartLine, max(n.Span.StartCol-1, 0), n.Span.EndLine, max(n.Span.EndCol-1, 0))
	}
	buf.WriteByte('}')
	return nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case *Node:
		return encodeNode(buf, val)
	case List:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case String:
		writeString(buf, string(val))
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
