package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := analyzeSource(t, "app.js", `class A {}
function keep() { gone(); }
function gone() {}`)
	target := analyzeSource(t, "app.js", `class B extends A {}
function keep() { fresh(); }
function fresh() {}
var counter = 0;
document.addEventListener('load', keep);`)

	d, err := Diff(base, target)
	require.NoError(t, err)

	assert.Equal(t, base.ID, d.BaseID)
	assert.Equal(t, target.ID, d.TargetID)
	assert.Equal(t, []string{"fresh"}, d.FunctionsAdded)
	assert.Equal(t, []string{"gone"}, d.FunctionsRemoved)
	assert.Equal(t, []string{"B"}, d.ClassesAdded)
	assert.Equal(t, []string{"A"}, d.ClassesRemoved)
	assert.Equal(t, 1, d.CallEdgesAdded)
	assert.Equal(t, 1, d.CallEdgesRemoved)
	assert.Equal(t, 6, d.TotalChanges)

	assert.Equal(t, 0, d.Counts.Functions)
	assert.Equal(t, 1, d.Counts.Variables)
	assert.Equal(t, 1, d.Counts.EventListeners)
	assert.Equal(t, target.Quality.Total-base.Quality.Total, d.Quality.Total)
}

func TestDiff_Identical(t *testing.T) {
	r := analyzeSource(t, "app.js", listenerSource)
	d, err := Diff(r, r)
	require.NoError(t, err)
	assert.Zero(t, d.TotalChanges)
	assert.Equal(t, CountDelta{}, d.Counts)
	assert.Empty(t, d.FunctionsAdded)
	assert.NotNil(t, d.FunctionsAdded)
}

func TestDiff_NilArgs(t *testing.T) {
	r := analyzeSource(t, "app.js", "")
	_, err := Diff(nil, r)
	assert.Error(t, err)
	_, err = Diff(r, nil)
	assert.Error(t, err)
}
