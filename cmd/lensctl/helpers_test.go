package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func analyzeForBrowse(t *testing.T) *analysis.Result {
	t.Helper()
	a, err := analysis.NewAnalyzer(analysis.WithLogger(quietLogger()))
	require.NoError(t, err)
	b := bundle.NewReader(bundle.DefaultOptions(), quietLogger()).FromSource("app.js", []byte(listenerSource))
	r, err := a.Analyze(context.Background(), b)
	require.NoError(t, err)
	return r
}
