package ast

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const estreeSample = `{
  "type": "Program",
  "sourceType": "module",
  "body": [
    {
      "type": "FunctionDeclaration",
      "id": {"type": "Identifier", "name": "greet", "loc": {"start": {"line": 1, "column": 9}, "end": {"line": 1, "column": 14}}},
      "params": [{"type": "Identifier", "name": "who"}],
      "body": {"type": "BlockStatement", "body": []},
      "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 3, "column": 1}}
    },
    {
      "type": "ExpressionStatement",
      "expression": {"type": "Literal", "value": 42, "raw": "42", "regex": null}
    }
  ],
  "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 4, "column": 0}}
}`

func TestDecodeESTree_Shape(t *testing.T) {
	root, err := DecodeESTree([]byte(estreeSample))
	if err != nil {
		t.Fatalf("DecodeESTree: %v", err)
	}
	if root.Kind != KindProgram {
		t.Fatalf("root kind = %v, want Program", root.Kind)
	}
	if root.Span == nil || root.Span.EndLine != 4 {
		t.Errorf("root span = %+v, want end line 4", root.Span)
	}

	body := root.Children("body")
	if len(body) != 2 {
		t.Fatalf("body len = %d, want 2", len(body))
	}
	fn := body[0]
	if !fn.Is(KindFunctionDeclaration) {
		t.Errorf("body[0] kind = %v", fn.Kind)
	}
	if got := fn.Child("id").Name(); got != "greet" {
		t.Errorf("function id = %q, want greet", got)
	}
	if fn.Span.StartLine != 1 || fn.Span.StartCol != 1 || fn.Span.EndLine != 3 {
		t.Errorf("function span = %+v", fn.Span)
	}

	lit := body[1].Child("expression")
	if v, ok := lit.Field("value").(Number); !ok || v != 42 {
		t.Errorf("literal value = %#v, want Number(42)", lit.Field("value"))
	}
	if lit.Str("value") != "42" {
		t.Errorf("literal Str = %q, want 42", lit.Str("value"))
	}
}

func TestDecodeESTree_KeepsMemberOrder(t *testing.T) {
	root, err := DecodeESTree([]byte(`{"type":"X","zeta":1,"alpha":2,"mid":3}`))
	if err != nil {
		t.Fatalf("DecodeESTree: %v", err)
	}
	var names []string
	for _, f := range root.Fields {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "zeta,alpha,mid" {
		t.Errorf("field order = %s, want zeta,alpha,mid", got)
	}
}

func TestDecodeESTree_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"malformed", `{"type": "Program", "body": [}`, func(err error) bool {
			var perr *ParseError
			return errors.As(err, &perr)
		}},
		{"array root", `[1, 2]`, func(err error) bool { return errors.Is(err, ErrEmptyTree) }},
		{"trailing data", `{"type":"Program"} {"type":"Program"}`, func(err error) bool {
			var perr *ParseError
			return errors.As(err, &perr)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeESTree([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type: %v", err)
			}
		})
	}
}

func TestNodeMarshalJSON_RoundTripsThroughDecoder(t *testing.T) {
	root, err := DecodeESTree([]byte(estreeSample))
	if err != nil {
		t.Fatalf("DecodeESTree: %v", err)
	}
	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("invalid JSON: %s", data)
	}

	again, err := DecodeESTree(data)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	fn := again.Children("body")[0]
	if fn.Child("id").Name() != "greet" {
		t.Errorf("round-trip lost function id")
	}
	if fn.Span == nil || *fn.Span != *root.Children("body")[0].Span {
		t.Errorf("round-trip span = %+v, want %+v", fn.Span, root.Children("body")[0].Span)
	}
}

func TestNodeMarshalJSON_OmitsParentField(t *testing.T) {
	root := NewNode("Program", nil)
	child := NewNode("EmptyStatement", nil, Field{ParentField, root})
	root.Set("body", List{child})

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), ParentField) {
		t.Errorf("encoded tree contains parent field: %s", data)
	}
}
