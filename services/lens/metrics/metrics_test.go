// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, err := ast.NewJavaScriptParser().Parse(context.Background(), []byte(src), "app.js")
	require.NoError(t, err)
	return root
}

func TestCollect_Counts(t *testing.T) {
	src := `function a() {}
function b() { function inner() {} }
const x = 1, y = () => {};
let z = function () {};
el.addEventListener('click', a);
window.addEventListener('load', () => {});
el.removeEventListener('click', a);
addEventListener('bare', a);`
	snap := Collect(parse(t, src))

	assert.Equal(t, 3, snap.FunctionCount, "declarations only, nested included")
	assert.Equal(t, 3, snap.VariableCount, "declarators, function-valued included")
	assert.Equal(t, 2, snap.EventListenerCount, "member calls only")
	assert.Equal(t, 8, snap.MaxLine)
}

func TestCollect_LoopHeadDeclarations(t *testing.T) {
	src := "for (const x of xs) {}\nfor (let k in o) {}\nfor (var i = 0; i < 3; i++) {}\nfor (y of ys) {}"
	snap := Collect(parse(t, src))
	assert.Equal(t, 3, snap.VariableCount, "for-of, for-in and classic for heads")
}

func TestCollect_Empty(t *testing.T) {
	assert.Equal(t, Snapshot{}, Collect(nil))

	root := ast.NewNode("Program", nil, ast.Field{Name: "body", Value: ast.List{}})
	assert.Equal(t, Snapshot{}, Collect(root))
}

func TestCollect_MaxLineFromAnyNode(t *testing.T) {
	root := ast.NewNode("Program", &ast.Span{StartLine: 1, EndLine: 3},
		ast.Field{Name: "body", Value: ast.List{
			ast.NewNode("Weird", &ast.Span{StartLine: 2, EndLine: 40}),
			ast.NewNode("NoSpan", nil),
		}})
	assert.Equal(t, 40, Collect(root).MaxLine)
}

func TestCollect_Deterministic(t *testing.T) {
	root := parse(t, "function a() { b(); }\nconst c = 2;\n")
	assert.Equal(t, Collect(root), Collect(root))
}

func TestDerive(t *testing.T) {
	got := Derive(Snapshot{FunctionCount: 2, VariableCount: 3, EventListenerCount: 1, MaxLine: 10})
	want := Extended{
		LOC:                  10,
		Cyclomatic:           3,
		CBO:                  2,
		RFC:                  5,
		FanOut:               3,
		LCOM:                 1,
		TCC:                  0.96,
		DIT:                  1,
		NOC:                  0,
		WMC:                  4,
		HalsteadVolume:       30,
		HalsteadEffort:       90,
		MaintainabilityIndex: 166,
	}
	assert.InDelta(t, want.TCC, got.TCC, 1e-9)
	got.TCC = want.TCC
	assert.Equal(t, want, got)
}

func TestDerive_Floors(t *testing.T) {
	got := Derive(Snapshot{})
	assert.Equal(t, 1, got.Cyclomatic)
	assert.Equal(t, 0, got.LCOM)
	assert.Equal(t, 1.0, got.TCC)
	assert.Equal(t, 171, got.MaintainabilityIndex)
}

func TestScore(t *testing.T) {
	cfg := DefaultScoreConfig()
	tests := []struct {
		name string
		snap Snapshot
		want Quality
	}{
		{
			name: "empty tree",
			snap: Snapshot{},
			want: Quality{Functions: 100, Variables: 100, EventListeners: 40, Maintainability: 82, Total: 81},
		},
		{
			name: "at event target",
			snap: Snapshot{FunctionCount: 5, VariableCount: 10, EventListenerCount: 3},
			want: Quality{Functions: 75, Variables: 67, EventListeners: 100, Maintainability: 80, Total: 80},
		},
		{
			name: "small program",
			snap: Snapshot{FunctionCount: 1, VariableCount: 1},
			want: Quality{Functions: 95, Variables: 97, EventListeners: 40, Maintainability: 79, Total: 78},
		},
		{
			name: "everything past the limits",
			snap: Snapshot{FunctionCount: 30, VariableCount: 45, EventListenerCount: 10},
			want: Quality{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.snap, cfg))
		})
	}
}

func TestScore_StaysInRange(t *testing.T) {
	cfg := DefaultScoreConfig()
	for f := 0; f <= 40; f += 7 {
		for v := 0; v <= 60; v += 11 {
			for e := 0; e <= 10; e++ {
				q := Score(Snapshot{FunctionCount: f, VariableCount: v, EventListenerCount: e}, cfg)
				for _, s := range []int{q.Functions, q.Variables, q.EventListeners, q.Maintainability, q.Total} {
					if s < 0 || s > 100 {
						t.Fatalf("score %d out of range for f=%d v=%d e=%d: %+v", s, f, v, e, q)
					}
				}
			}
		}
	}
}

func TestScore_EventListenersPeakAtTarget(t *testing.T) {
	cfg := DefaultScoreConfig()
	scores := make([]int, 11)
	for e := range scores {
		scores[e] = Score(Snapshot{EventListenerCount: e}, cfg).EventListeners
	}

	tests := []struct {
		count int
		want  int
	}{
		{0, 40}, {1, 60}, {2, 80}, {3, 100}, {4, 80}, {5, 60},
		{6, 40}, {7, 20}, {8, 0}, {9, 0}, {10, 0},
	}
	for _, tt := range tests {
		if scores[tt.count] != tt.want {
			t.Errorf("event score for %d listeners = %d, want %d", tt.count, scores[tt.count], tt.want)
		}
	}

	// Strictly decreasing away from the target on both sides until the floor.
	for e := 3; e > 0; e-- {
		if scores[e-1] >= scores[e] {
			t.Errorf("event score did not drop from %d to %d listeners: %d -> %d", e, e-1, scores[e], scores[e-1])
		}
	}
	for e := 3; e < len(scores)-1; e++ {
		if scores[e] == 0 {
			if scores[e+1] != 0 {
				t.Errorf("event score left the floor at %d listeners: %d", e+1, scores[e+1])
			}
			continue
		}
		if scores[e+1] >= scores[e] {
			t.Errorf("event score did not drop from %d to %d listeners: %d -> %d", e, e+1, scores[e], scores[e+1])
		}
	}
}

func TestScore_CustomConfig(t *testing.T) {
	cfg := DefaultScoreConfig()
	cfg.MaxFunctions = 10
	cfg.EventListenerTarget = 0
	q := Score(Snapshot{FunctionCount: 5}, cfg)
	assert.Equal(t, 50, q.Functions)
	assert.Equal(t, 100, q.EventListeners)
}

func TestScoreConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultScoreConfig().Validate())

	bad := DefaultScoreConfig()
	bad.MaxVariables = 0
	assert.Error(t, bad.Validate())
}

func TestEntries(t *testing.T) {
	x := ExtendedEntries(Derive(Snapshot{FunctionCount: 1}))
	require.Len(t, x, 13)
	assert.Equal(t, "tcc", x[6].Key)
	assert.Equal(t, "0.98", x[6].Value)

	q := QualityEntries(Quality{Total: 81})
	require.Len(t, q, 5)
	assert.Equal(t, "81", q[4].Value)
	assert.Equal(t, "good", Grade(81))
	assert.Equal(t, "fair", Grade(50))
	assert.Equal(t, "poor", Grade(49))
}
