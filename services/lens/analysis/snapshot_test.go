// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// newTestDB creates an in-memory BadgerDB for testing.
func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T, max int) *SnapshotStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := NewSnapshotStore(newTestDB(t), logger, max)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	return store
}

func analyzeSource(t *testing.T, name, src string) *Result {
	t.Helper()
	r, err := newTestAnalyzer(t).Analyze(context.Background(), sourceBundle(name, src))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return r
}

func TestNewSnapshotStore_NilArgs(t *testing.T) {
	if _, err := NewSnapshotStore(nil, slog.Default(), 0); err == nil {
		t.Error("expected error for nil db")
	}
	if _, err := NewSnapshotStore(newTestDB(t), nil, 0); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	r := analyzeSource(t, "app.js", listenerSource)

	meta, err := store.Save(ctx, r, "baseline")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SnapshotID != r.ID {
		t.Errorf("snapshot id = %q, want %q", meta.SnapshotID, r.ID)
	}
	if meta.FunctionCount != 2 || meta.QualityTotal != r.Quality.Total {
		t.Errorf("metadata counts = %+v", meta)
	}
	if meta.ContentHash == "" || meta.CompressedSize == 0 {
		t.Error("missing content hash or size")
	}

	loaded, loadedMeta, err := store.Load(ctx, r.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedMeta.Label != "baseline" {
		t.Errorf("label = %q", loadedMeta.Label)
	}
	if loaded.Tree != nil {
		t.Error("tree should not be persisted")
	}
	if loaded.Snapshot != r.Snapshot || loaded.Quality != r.Quality {
		t.Errorf("loaded metrics differ: %+v vs %+v", loaded.Snapshot, r.Snapshot)
	}
	if len(loaded.Structure.Functions) != 2 || len(loaded.Diagrams.Call.Edges) != 1 {
		t.Errorf("loaded structure = %+v", loaded.Structure)
	}
	if !loaded.AnalyzedAt.Equal(r.AnalyzedAt) {
		t.Errorf("analyzed at = %v, want %v", loaded.AnalyzedAt, r.AnalyzedAt)
	}
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	store := newTestStore(t, 0)
	_, _, err := store.Load(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
	_, _, err = store.LoadLatest(context.Background(), "nothing.zip")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("latest err = %v, want ErrSnapshotNotFound", err)
	}
	if err := store.Delete(context.Background(), "does-not-exist"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("delete err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotStore_LatestAndList(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	a1 := analyzeSource(t, "a.js", "var x;")
	a2 := analyzeSource(t, "a.js", "var x; var y;")
	b1 := analyzeSource(t, "b.js", "function f() {}")
	for _, r := range []*Result{a1, a2, b1} {
		if _, err := store.Save(ctx, r, ""); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	latest, _, err := store.LoadLatest(ctx, "a.js")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest.ID != a2.ID {
		t.Errorf("latest = %s, want %s", latest.ID, a2.ID)
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("list all = %d, want 3", len(all))
	}

	onlyA, err := store.List(ctx, "a.js", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("list a.js = %d, want 2", len(onlyA))
	}
	for _, m := range onlyA {
		if m.BundleName != "a.js" {
			t.Errorf("filtered list contains %q", m.BundleName)
		}
	}

	limited, _ := store.List(ctx, "", 1)
	if len(limited) != 1 {
		t.Errorf("limited list = %d, want 1", len(limited))
	}
}

func TestSnapshotStore_DeleteClearsLatest(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	r := analyzeSource(t, "app.js", "var x;")
	if _, err := store.Save(ctx, r, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Load(ctx, r.ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("load after delete = %v", err)
	}
	if _, _, err := store.LoadLatest(ctx, "app.js"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("latest after delete = %v", err)
	}
	list, _ := store.List(ctx, "", 0)
	if len(list) != 0 {
		t.Errorf("list after delete = %d", len(list))
	}
}

func TestSnapshotStore_DeleteRepointsLatest(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	older := analyzeSource(t, "app.js", "var x;")
	if _, err := store.Save(ctx, older, "older"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer := analyzeSource(t, "app.js", "var x; var y;")
	if _, err := store.Save(ctx, newer, "newer"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other := analyzeSource(t, "other.js", "var z;")
	if _, err := store.Save(ctx, other, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(ctx, newer.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	latest, meta, err := store.LoadLatest(ctx, "app.js")
	if err != nil {
		t.Fatalf("LoadLatest after deleting newest: %v", err)
	}
	if latest.ID != older.ID || meta.Label != "older" {
		t.Errorf("latest = %s (%q), want %s", latest.ID, meta.Label, older.ID)
	}

	if err := store.Delete(ctx, older.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.LoadLatest(ctx, "app.js"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("latest with no snapshots left = %v, want ErrSnapshotNotFound", err)
	}
	if r, _, err := store.LoadLatest(ctx, "other.js"); err != nil || r.ID != other.ID {
		t.Errorf("other bundle latest = %v, %v", r, err)
	}
}

func TestSnapshotStore_RecordPrunes(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := store.Record(ctx, analyzeSource(t, "app.js", "var x;")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	list, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("kept = %d, want 2", len(list))
	}
}

func TestSnapshotStore_IntegrityCheck(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()
	r := analyzeSource(t, "app.js", "var x;")
	meta, err := store.Save(ctx, r, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	dataKey, _ := snapKeys(meta.BundleHash, meta.SnapshotID)
	err = store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(dataKey), []byte("corrupted"))
	})
	if err != nil {
		t.Fatalf("corrupting data: %v", err)
	}

	if _, _, err := store.Load(ctx, r.ID); err == nil {
		t.Error("expected integrity failure")
	}
}

func TestSnapshotStore_AsSessionRecorder(t *testing.T) {
	store := newTestStore(t, 0)
	s := NewSession(newTestAnalyzer(t), nil, store)
	r, err := s.Run(context.Background(), sourceBundle("app.js", listenerSource))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, _, err := store.Load(context.Background(), r.ID); err != nil {
		t.Errorf("session result not recorded: %v", err)
	}
}
