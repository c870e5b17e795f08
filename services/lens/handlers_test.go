// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lens

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
)

const listenerSource = `function a() {}
function b() { a(); }
document.addEventListener('click', b);`

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	session  *analysis.Session
	store    *analysis.SnapshotStore
	handlers *Handlers
}

// setupTestRouter builds a router over a fresh session. With snapshots
// enabled, every analysis is recorded in an in-memory store.
func setupTestRouter(t *testing.T, snapshots bool, maxUpload int64) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := analysis.NewAnalyzer(analysis.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	ts := &testServer{}
	var recorders []analysis.Recorder
	if snapshots {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		ts.store, err = analysis.NewSnapshotStore(db, logger, 0)
		if err != nil {
			t.Fatalf("NewSnapshotStore: %v", err)
		}
		recorders = append(recorders, ts.store)
	}

	ts.session = analysis.NewSession(a, logger, recorders...)
	ts.handlers = NewHandlers(ts.session, bundle.NewReader(bundle.DefaultOptions(), logger), ts.store, maxUpload)

	ts.router = gin.New()
	ts.router.Use(RequestID())
	RegisterRoutes(ts.router.Group("/v1"), ts.handlers, nil)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) analyze(t *testing.T, name, src string) *analysis.Result {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/v1/lens/analyze?name="+name, strings.NewReader(src), "application/javascript")
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var r analysis.Result
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	return &r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error response %q: %v", w.Body.String(), err)
	}
	return resp
}

func zipBundle(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("bundle", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleLatest_NoResult(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	for _, path := range []string{
		"/v1/lens/latest",
		"/v1/lens/latest/metrics",
		"/v1/lens/latest/structure",
		"/v1/lens/latest/diagrams",
		"/v1/lens/latest/ast",
		"/v1/lens/latest/provided",
	} {
		w := ts.do(t, http.MethodGet, path, nil, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
			continue
		}
		if code := decodeError(t, w).Code; code != CodeNoResult {
			t.Errorf("%s: expected code %s, got %s", path, CodeNoResult, code)
		}
	}
}

func TestHandleAnalyze_RawSource(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	r := ts.analyze(t, "app.js", listenerSource)
	if r.BundleName != "app.js" {
		t.Errorf("expected bundle name app.js, got %q", r.BundleName)
	}
	if r.Snapshot.FunctionCount != 2 || r.Snapshot.EventListenerCount != 1 {
		t.Errorf("unexpected snapshot: %+v", r.Snapshot)
	}
	if r.Quality.Total != 84 {
		t.Errorf("expected quality total 84, got %d", r.Quality.Total)
	}
	if r.ID == "" || r.SourceHash == "" {
		t.Errorf("expected id and source hash, got %q / %q", r.ID, r.SourceHash)
	}

	w := ts.do(t, http.MethodGet, "/v1/lens/latest", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("latest: expected 200, got %d", w.Code)
	}
	var latest analysis.Result
	if err := json.Unmarshal(w.Body.Bytes(), &latest); err != nil {
		t.Fatalf("failed to parse latest: %v", err)
	}
	if latest.ID != r.ID {
		t.Errorf("latest id %q, want %q", latest.ID, r.ID)
	}
}

func TestHandleLatestMetrics(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	ts.analyze(t, "app.js", listenerSource)

	w := ts.do(t, http.MethodGet, "/v1/lens/latest/metrics", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp MetricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Grade != "good" {
		t.Errorf("expected grade good, got %q", resp.Grade)
	}
	if len(resp.QualityLabels) != 5 || resp.QualityLabels[4].Value != "84" {
		t.Errorf("unexpected quality labels: %+v", resp.QualityLabels)
	}
	if len(resp.ExtendedLabels) != 13 {
		t.Errorf("expected 13 extended labels, got %d", len(resp.ExtendedLabels))
	}
}

func TestHandleLatestStructureAndTree(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	ts.analyze(t, "app.js", listenerSource)

	w := ts.do(t, http.MethodGet, "/v1/lens/latest/structure", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("structure: expected 200, got %d", w.Code)
	}
	var sresp StructureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sresp); err != nil {
		t.Fatalf("failed to parse structure: %v", err)
	}
	if len(sresp.Structure.Functions) != 2 {
		t.Errorf("expected 2 functions, got %d", len(sresp.Structure.Functions))
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/latest/ast", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("ast: expected 200, got %d", w.Code)
	}
	var tree map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &tree); err != nil {
		t.Fatalf("ast is not JSON: %v", err)
	}
	if tree["type"] != "Program" {
		t.Errorf("expected Program root, got %v", tree["type"])
	}
}

func TestHandleLatestDiagrams(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	ts.analyze(t, "app.js", listenerSource)

	t.Run("json model", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/lens/latest/diagrams", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"call"`) {
			t.Errorf("expected call graph in body: %s", w.Body.String())
		}
	})

	t.Run("mermaid both", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/lens/latest/diagrams?format=mermaid", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp MermaidResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if !strings.HasPrefix(resp.Class, "classDiagram") {
			t.Errorf("unexpected class script: %q", resp.Class)
		}
		if !strings.HasPrefix(resp.Call, "flowchart LR") {
			t.Errorf("unexpected call script: %q", resp.Call)
		}
	})

	t.Run("mermaid call only", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/lens/latest/diagrams?format=mermaid&kind=call", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
			t.Errorf("expected text/plain, got %q", w.Header().Get("Content-Type"))
		}
		if !strings.Contains(w.Body.String(), "Event Listeners (1)") {
			t.Errorf("expected event aggregate node: %s", w.Body.String())
		}
	})

	t.Run("bad format", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/lens/latest/diagrams?format=svg", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		w = ts.do(t, http.MethodGet, "/v1/lens/latest/diagrams?format=mermaid&kind=sequence", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for bad kind, got %d", w.Code)
		}
	})
}

func TestHandleAnalyze_MultipartZip(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	data := zipBundle(t, map[string]string{
		"dist/app.js":   listenerSource,
		"meta/ast.json": `{"type":"Program","body":[]}`,
	})
	body, ct := multipartBody(t, "site.zip", data)

	w := ts.do(t, http.MethodPost, "/v1/lens/analyze", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var r analysis.Result
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if r.BundleName != "site.zip" || r.FileName != "dist/app.js" {
		t.Errorf("unexpected names: bundle=%q file=%q", r.BundleName, r.FileName)
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/latest/provided", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("provided: expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("expected JSON content type, got %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), `"type": "Program"`) {
		t.Errorf("expected pretty-printed provided analysis, got %s", w.Body.String())
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      []byte
		maxUpload int64
		status    int
		code      string
	}{
		{
			name:   "parse error",
			path:   "/v1/lens/analyze?name=bad.js",
			body:   []byte("function ( {"),
			status: http.StatusUnprocessableEntity,
			code:   CodeParseError,
		},
		{
			name:   "missing source entry",
			path:   "/v1/lens/analyze?name=empty.zip",
			body:   nil, // filled below
			status: http.StatusUnprocessableEntity,
			code:   CodeMissingEntry,
		},
		{
			name:   "empty body",
			path:   "/v1/lens/analyze",
			body:   []byte{},
			status: http.StatusBadRequest,
			code:   CodeInvalidRequest,
		},
		{
			name:      "upload too large",
			path:      "/v1/lens/analyze",
			body:      []byte(listenerSource),
			maxUpload: 16,
			status:    http.StatusRequestEntityTooLarge,
			code:      CodeUploadTooLarge,
		},
		{
			name:   "unsupported uri",
			path:   "/v1/lens/analyze?uri=s3://bucket/key.zip",
			status: http.StatusBadRequest,
			code:   CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestRouter(t, false, tt.maxUpload)
			body := tt.body
			if tt.code == CodeMissingEntry {
				body = zipBundle(t, map[string]string{"readme.txt": "hi"})
			}

			w := ts.do(t, http.MethodPost, tt.path, bytes.NewReader(body), "application/octet-stream")
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if code := decodeError(t, w).Code; code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, code)
			}
			if ts.session.Latest() != nil {
				t.Error("failed analysis must not replace the latest result")
			}
		})
	}
}

func TestHandleAnalyze_FailureKeepsPrevious(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	first := ts.analyze(t, "app.js", listenerSource)

	w := ts.do(t, http.MethodPost, "/v1/lens/analyze?name=bad.js", strings.NewReader("function ( {"), "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if got := ts.session.Latest(); got == nil || got.ID != first.ID {
		t.Errorf("expected previous result %s to remain latest", first.ID)
	}
}

func TestHandleAnalyzeTree(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	tree := `{"type":"Program","body":[
		{"type":"FunctionDeclaration","id":{"type":"Identifier","name":"main"},"params":[],
		 "body":{"type":"BlockStatement","body":[]}}
	]}`
	w := ts.do(t, http.MethodPost, "/v1/lens/analyze/ast?name=tree.json", strings.NewReader(tree), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var r analysis.Result
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if r.Snapshot.FunctionCount != 1 || r.BundleName != "tree.json" {
		t.Errorf("unexpected result: count=%d name=%q", r.Snapshot.FunctionCount, r.BundleName)
	}

	w = ts.do(t, http.MethodPost, "/v1/lens/analyze/ast", strings.NewReader(`{"type":`), "application/json")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed JSON: expected 422, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/v1/lens/analyze/ast", strings.NewReader(`[1,2]`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("array root: expected 400, got %d", w.Code)
	}
	if code := decodeError(t, w).Code; code != CodeInvalidTree {
		t.Errorf("expected %s, got %s", CodeInvalidTree, code)
	}
}

func TestSnapshots_NotAvailable(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/v1/lens/snapshots"},
		{http.MethodGet, "/v1/lens/snapshots"},
		{http.MethodGet, "/v1/lens/snapshots/diff?base=x"},
		{http.MethodGet, "/v1/lens/snapshots/abc"},
		{http.MethodDelete, "/v1/lens/snapshots/abc"},
	} {
		w := ts.do(t, req.method, req.path, nil, "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", req.method, req.path, w.Code)
			continue
		}
		if code := decodeError(t, w).Code; code != CodeSnapshotsNotAvailable {
			t.Errorf("%s %s: expected %s, got %s", req.method, req.path, CodeSnapshotsNotAvailable, code)
		}
	}
}

func TestSnapshots_Lifecycle(t *testing.T) {
	ts := setupTestRouter(t, true, 0)

	first := ts.analyze(t, "app.js", `function gone() {}`)
	second := ts.analyze(t, "app.js", listenerSource)

	// Both runs were recorded automatically.
	w := ts.do(t, http.MethodGet, "/v1/lens/snapshots?bundle=app.js", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list ListSnapshotsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("expected 2 snapshots, got %d", list.Count)
	}

	// Label the latest.
	w = ts.do(t, http.MethodPost, "/v1/lens/snapshots", strings.NewReader(`{"label":"v2"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var saved SaveSnapshotResponse
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("failed to parse save response: %v", err)
	}
	if saved.SnapshotID != second.ID || saved.Metadata.Label != "v2" {
		t.Errorf("unexpected save response: %+v", saved)
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/snapshots/"+first.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var snap SnapshotResponse
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse snapshot: %v", err)
	}
	if snap.Result.ID != first.ID || snap.Metadata.FunctionCount != 1 {
		t.Errorf("unexpected snapshot: id=%s functions=%d", snap.Result.ID, snap.Metadata.FunctionCount)
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/snapshots/diff?base="+first.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("diff: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d analysis.ResultDiff
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("failed to parse diff: %v", err)
	}
	if d.TargetID != second.ID {
		t.Errorf("expected diff against latest %s, got %s", second.ID, d.TargetID)
	}
	if len(d.FunctionsRemoved) != 1 || d.FunctionsRemoved[0] != "gone" {
		t.Errorf("expected gone removed, got %v", d.FunctionsRemoved)
	}

	w = ts.do(t, http.MethodDelete, "/v1/lens/snapshots/"+first.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/v1/lens/snapshots/"+first.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}
	w = ts.do(t, http.MethodDelete, "/v1/lens/snapshots/"+first.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
}

func TestSnapshots_Validation(t *testing.T) {
	ts := setupTestRouter(t, true, 0)

	w := ts.do(t, http.MethodPost, "/v1/lens/snapshots", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("save without result: expected 404, got %d", w.Code)
	}

	ts.analyze(t, "app.js", listenerSource)
	long := `{"label":"` + strings.Repeat("x", 200) + `"}`
	w = ts.do(t, http.MethodPost, "/v1/lens/snapshots", strings.NewReader(long), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("long label: expected 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/snapshots/diff", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("diff without base: expected 400, got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/v1/lens/snapshots/diff?base=nope", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("diff with unknown base: expected 404, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	ts := setupTestRouter(t, true, 0)

	w := ts.do(t, http.MethodGet, "/v1/lens/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "healthy" || resp.HasResult || !resp.SnapshotsEnabled {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestRequestID(t *testing.T) {
	ts := setupTestRouter(t, false, 0)

	req, _ := http.NewRequest(http.MethodGet, "/v1/lens/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}

	w = ts.do(t, http.MethodGet, "/v1/lens/health", nil, "")
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}
}
