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
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
)

// BadgerDB key prefixes for result snapshots.
const (
	keyPrefixSnap      = "lens:snap:"
	keyPrefixSnapIndex = "lens:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// ErrSnapshotNotFound is returned when a snapshot ID or latest pointer
// does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMetadata describes a stored result snapshot.
type SnapshotMetadata struct {
	// SnapshotID equals the Result ID.
	SnapshotID string `json:"snapshot_id"`

	// BundleName is the bundle the result came from.
	BundleName string `json:"bundle_name"`

	// BundleHash is SHA256(BundleName)[:16] for key grouping.
	BundleHash string `json:"bundle_hash"`

	FileName   string `json:"file_name"`
	SourceHash string `json:"source_hash,omitempty"`

	// Label is an optional human-readable label.
	Label string `json:"label,omitempty"`

	// CreatedAtMilli is when the snapshot was saved (Unix milliseconds UTC).
	CreatedAtMilli int64 `json:"created_at_milli"`

	// AnalyzedAtMilli is when the result was produced.
	AnalyzedAtMilli int64 `json:"analyzed_at_milli"`

	FunctionCount int `json:"function_count"`
	VariableCount int `json:"variable_count"`
	ClassCount    int `json:"class_count"`
	QualityTotal  int `json:"quality_total"`

	// SchemaVersion is the Result serialization version.
	SchemaVersion string `json:"schema_version"`

	// CompressedSize is the size of the gzip-compressed JSON payload in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA256 hash of the compressed payload.
	ContentHash string `json:"content_hash"`
}

// SnapshotStore keeps a history of results in BadgerDB.
//
// Description:
//
//	Results are stored as gzip-compressed JSON with a metadata record for
//	listing. Each bundle name has a "latest" pointer and every snapshot
//	has a reverse index entry from its ID to its bundle group. The syntax
//	tree is not stored.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type SnapshotStore struct {
	db     *badger.DB
	logger *slog.Logger
	max    int
}

// NewSnapshotStore creates a SnapshotStore.
//
// Inputs:
//
//	db     - An opened BadgerDB instance. Must not be nil.
//	logger - Logger for diagnostic output. Must not be nil.
//	max    - Maximum snapshots kept by Record. Zero keeps everything.
//
// Outputs:
//
//	*SnapshotStore - The configured store.
//	error          - Non-nil if db or logger is nil.
func NewSnapshotStore(db *badger.DB, logger *slog.Logger, max int) (*SnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &SnapshotStore{db: db, logger: logger, max: max}, nil
}

// Record saves r without a label and prunes to the configured maximum.
// It lets a store be attached to a Session.
func (s *SnapshotStore) Record(ctx context.Context, r *Result) error {
	if _, err := s.Save(ctx, r, ""); err != nil {
		return err
	}
	if s.max > 0 {
		if _, err := s.Prune(ctx, s.max); err != nil {
			return err
		}
	}
	return nil
}

// Save persists a result snapshot.
//
// Key Schema:
//
//	lens:snap:{bundleHash}:{snapshotID}:data → gzip(JSON(Result))
//	lens:snap:{bundleHash}:{snapshotID}:meta → JSON(SnapshotMetadata)
//	lens:snap:{bundleHash}:latest            → snapshotID
//	lens:snap:index:{snapshotID}             → bundleHash
func (s *SnapshotStore) Save(ctx context.Context, r *Result, label string) (meta *SnapshotMetadata, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("result must not be nil")
	}
	_, span := tracer.Start(ctx, "SnapshotStore.Save")
	defer span.End()
	defer func() { recordSnapshotOp("save", err) }()

	jsonData, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	compressedData, err := compress(jsonData)
	if err != nil {
		return nil, err
	}

	bundleHash := BundleHash(r.BundleName)
	meta = &SnapshotMetadata{
		SnapshotID:      r.ID,
		BundleName:      r.BundleName,
		BundleHash:      bundleHash,
		FileName:        r.FileName,
		SourceHash:      r.SourceHash,
		Label:           label,
		CreatedAtMilli:  time.Now().UnixMilli(),
		AnalyzedAtMilli: r.AnalyzedAt.UnixMilli(),
		FunctionCount:   r.Snapshot.FunctionCount,
		VariableCount:   r.Snapshot.VariableCount,
		ClassCount:      len(r.Structure.Classes),
		QualityTotal:    r.Quality.Total,
		SchemaVersion:   r.SchemaVersion,
		CompressedSize:  int64(len(compressedData)),
		ContentHash:     hashBytes(compressedData),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	dataKey, metaKey := snapKeys(bundleHash, r.ID)
	latestKey := keyPrefixSnap + bundleHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + r.ID

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressedData); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set([]byte(metaKey), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set([]byte(latestKey), []byte(r.ID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(indexKey), []byte(bundleHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	span.SetAttributes(
		attribute.String("snapshot_id", r.ID),
		attribute.Int64("compressed_size", meta.CompressedSize),
	)
	s.logger.Info("snapshot saved",
		slog.String("snapshot_id", r.ID),
		slog.String("bundle", r.BundleName),
		slog.Int("quality_total", meta.QualityTotal),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load retrieves a snapshot by its ID.
//
// Outputs:
//
//	*Result           - The stored result. Tree is nil.
//	*SnapshotMetadata - The snapshot metadata.
//	error             - ErrSnapshotNotFound (wrapped), an integrity
//	                    failure, or a decoding error.
func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (r *Result, meta *SnapshotMetadata, err error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	defer func() { recordSnapshotOp("load", err) }()

	bundleHash, err := s.bundleHashOf(snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return s.loadByKeys(bundleHash, snapshotID)
}

// LoadLatest loads the most recent snapshot for a bundle name.
func (s *SnapshotStore) LoadLatest(ctx context.Context, bundleName string) (*Result, *SnapshotMetadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	bundleHash := BundleHash(bundleName)
	latestKey := keyPrefixSnap + bundleHash + keySuffixLatest

	var snapshotID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			snapshotID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", bundleName, err)
	}
	return s.loadByKeys(bundleHash, snapshotID)
}

// List returns snapshot metadata, newest first.
//
// Inputs:
//
//	ctx        - Context for cancellation. Must not be nil.
//	bundleName - Optional filter. If empty, returns all snapshots.
//	limit      - Maximum number of results. If <= 0, defaults to 100.
func (s *SnapshotStore) List(ctx context.Context, bundleName string, limit int) ([]*SnapshotMetadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if limit <= 0 {
		limit = 100
	}
	results, err := s.listAll(bundleName)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SnapshotStore) listAll(bundleName string) ([]*SnapshotMetadata, error) {
	results := []*SnapshotMetadata{}

	prefix := keyPrefixSnap
	if bundleName != "" {
		prefix = keyPrefixSnap + BundleHash(bundleName) + ":"
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}

			var meta SnapshotMetadata
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	return results, nil
}

// Delete removes a snapshot. If it was the latest for its bundle, the
// latest pointer moves to the newest remaining snapshot of that bundle, or
// is removed when none remain.
func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) (err error) {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}
	defer func() { recordSnapshotOp("delete", err) }()

	bundleHash, err := s.bundleHashOf(snapshotID)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	dataKey, metaKey := snapKeys(bundleHash, snapshotID)
	latestKey := keyPrefixSnap + bundleHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + snapshotID

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{dataKey, metaKey, indexKey} {
			if err := txn.Delete([]byte(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", k, err)
			}
		}

		item, err := txn.Get([]byte(latestKey))
		if err == nil {
			var currentLatest string
			_ = item.Value(func(val []byte) error {
				currentLatest = string(val)
				return nil
			})
			if currentLatest == snapshotID {
				next, err := newestInBundle(txn, bundleHash, snapshotID)
				if err != nil {
					return err
				}
				if next != "" {
					if err := txn.Set([]byte(latestKey), []byte(next)); err != nil {
						return fmt.Errorf("repointing latest pointer: %w", err)
					}
				} else if err := txn.Delete([]byte(latestKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("deleting latest pointer: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	s.logger.Info("snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

// Prune deletes the oldest snapshots so at most keep remain.
//
// Outputs:
//
//	int   - Number of snapshots deleted.
//	error - Non-nil if listing or a delete fails.
func (s *SnapshotStore) Prune(ctx context.Context, keep int) (deleted int, err error) {
	if keep <= 0 {
		return 0, nil
	}
	defer func() { recordSnapshotOp("prune", err) }()

	all, err := s.listAll("")
	if err != nil {
		return 0, err
	}
	if len(all) <= keep {
		return 0, nil
	}
	for _, meta := range all[keep:] {
		if err := s.Delete(ctx, meta.SnapshotID); err != nil {
			return deleted, err
		}
		deleted++
	}
	s.logger.Info("snapshots pruned", slog.Int("deleted", deleted), slog.Int("kept", keep))
	return deleted, nil
}

func (s *SnapshotStore) loadByKeys(bundleHash, snapshotID string) (*Result, *SnapshotMetadata, error) {
	dataKey, metaKey := snapKeys(bundleHash, snapshotID)

	var compressedData, metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", snapshotID, notFound(err))
		}
		compressedData, err = dataItem.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}

		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", snapshotID, notFound(err))
		}
		metaJSON, err = metaItem.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(compressedData); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", snapshotID, meta.ContentHash, actual)
	}

	jsonData, err := decompress(compressedData)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}

	var r Result
	if err := json.Unmarshal(jsonData, &r); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling result for %s: %w", snapshotID, err)
	}
	if r.SchemaVersion != ResultSchemaVersion {
		return nil, nil, fmt.Errorf("snapshot %s has schema %q, want %q", snapshotID, r.SchemaVersion, ResultSchemaVersion)
	}
	return &r, &meta, nil
}

// newestInBundle returns the ID of the most recently created snapshot in
// the bundle group, skipping exclude. It returns "" when there is none.
func newestInBundle(txn *badger.Txn, bundleHash, exclude string) (string, error) {
	prefix := []byte(keyPrefixSnap + bundleHash + ":")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var newest string
	var newestAt int64
	for it.Seek(prefix); it.Valid(); it.Next() {
		item := it.Item()
		if !strings.HasSuffix(string(item.Key()), keySuffixMeta) {
			continue
		}
		var meta SnapshotMetadata
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			continue
		}
		if meta.SnapshotID == exclude {
			continue
		}
		if newest == "" || meta.CreatedAtMilli > newestAt {
			newest, newestAt = meta.SnapshotID, meta.CreatedAtMilli
		}
	}
	return newest, nil
}

func (s *SnapshotStore) bundleHashOf(snapshotID string) (string, error) {
	var bundleHash string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefixSnapIndex + snapshotID))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			bundleHash = string(val)
			return nil
		})
	})
	return bundleHash, err
}

// BundleHash returns SHA256(bundleName)[:16] for use as a key prefix.
func BundleHash(bundleName string) string {
	h := sha256.Sum256([]byte(bundleName))
	return hex.EncodeToString(h[:])[:16]
}

func snapKeys(bundleHash, snapshotID string) (dataKey, metaKey string) {
	base := keyPrefixSnap + bundleHash + ":" + snapshotID
	return base + keySuffixData, base + keySuffixMeta
}

// notFound maps badger's missing-key error onto ErrSnapshotNotFound.
func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrSnapshotNotFound
	}
	return err
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing result: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
