// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bundle reads packaged source bundles.
//
// A bundle is either a zip archive holding a required JavaScript source
// entry and an optional precomputed analysis entry, or a single plain
// source file. The reader only locates and loads entries; it does not
// parse them.
package bundle

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrEntryTooLarge is returned when an entry exceeds Options.MaxEntryBytes.
var ErrEntryTooLarge = errors.New("bundle entry exceeds maximum size")

// zipMagic is the local file header signature that starts a zip archive.
var zipMagic = []byte("PK\x03\x04")

// MissingEntryError reports a bundle without the required source entry.
type MissingEntryError struct {
	// Bundle is the name of the bundle that was searched.
	Bundle string

	// Suffix is the entry path suffix that was looked for.
	Suffix string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("bundle %s has no entry ending in %q", e.Bundle, e.Suffix)
}

// Options configures entry lookup.
type Options struct {
	// SourceSuffix selects the required source entry.
	// Default: "app.js"
	SourceSuffix string `yaml:"source_suffix" json:"source_suffix" validate:"required"`

	// AnalysisSuffix selects the optional precomputed analysis entry.
	// Default: "ast.json"
	AnalysisSuffix string `yaml:"analysis_suffix" json:"analysis_suffix" validate:"required"`

	// MaxEntryBytes caps the uncompressed size of any entry that is read.
	// Default: 10MB
	MaxEntryBytes int64 `yaml:"max_entry_bytes" json:"max_entry_bytes" validate:"gt=0"`

	// GCSCredentialsFile is a service account key for gs:// sources.
	// Empty uses application default credentials.
	GCSCredentialsFile string `yaml:"gcs_credentials_file" json:"gcs_credentials_file"`

	// GCSEndpoint overrides the storage endpoint, for emulators.
	GCSEndpoint string `yaml:"gcs_endpoint" json:"gcs_endpoint"`
}

// DefaultOptions returns the stock lookup options.
func DefaultOptions() Options {
	return Options{
		SourceSuffix:   "app.js",
		AnalysisSuffix: "ast.json",
		MaxEntryBytes:  10 * 1024 * 1024, // 10MB
	}
}

// Bundle is the loaded content of one bundle.
type Bundle struct {
	// Name is the bundle's display name (file name or object name).
	Name string `json:"name"`

	// SourceName is the path of the source entry inside the bundle. For a
	// plain source file it equals Name.
	SourceName string `json:"source_name"`

	// Source is the raw JavaScript source.
	Source []byte `json:"-"`

	// Provided is the precomputed analysis entry, pretty-printed when it is
	// valid JSON and verbatim otherwise. Nil when the bundle has none.
	Provided []byte `json:"-"`
}

// HasProvided reports whether the bundle carried an analysis entry.
func (b *Bundle) HasProvided() bool {
	return b.Provided != nil
}

// SourceHash returns the hex SHA-256 of the source.
func (b *Bundle) SourceHash() string {
	sum := sha256.Sum256(b.Source)
	return hex.EncodeToString(sum[:])
}

// Reader loads bundles.
//
// Thread Safety:
//
//	Reader is immutable after construction and safe for concurrent use.
type Reader struct {
	opts   Options
	logger *slog.Logger
}

// NewReader returns a Reader. Empty option fields take their defaults.
func NewReader(opts Options, logger *slog.Logger) *Reader {
	def := DefaultOptions()
	if opts.SourceSuffix == "" {
		opts.SourceSuffix = def.SourceSuffix
	}
	if opts.AnalysisSuffix == "" {
		opts.AnalysisSuffix = def.AnalysisSuffix
	}
	if opts.MaxEntryBytes <= 0 {
		opts.MaxEntryBytes = def.MaxEntryBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{opts: opts, logger: logger}
}

// Options returns the effective options.
func (r *Reader) Options() Options {
	return r.opts
}

// Open loads a bundle from the local file system.
//
// Description:
//
//	Files that start with a zip signature are read as archives. Anything
//	else is treated as a single source file.
//
// Inputs:
//
//	p - Path to a zip bundle or a JavaScript file.
//
// Outputs:
//
//	*Bundle - The loaded bundle.
//	error   - *MissingEntryError when an archive lacks the source entry,
//	          ErrEntryTooLarge, or an I/O error.
func (r *Reader) Open(p string) (*Bundle, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open bundle: %s is a directory", p)
	}

	head := make([]byte, len(zipMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	name := filepath.Base(p)
	if bytes.Equal(head[:n], zipMagic) {
		return r.FromZip(f, info.Size(), name)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind bundle: %w", err)
	}
	src, err := r.readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return r.FromSource(name, src), nil
}

// FromBytes loads a bundle held in memory, detecting zip content by its
// signature.
func (r *Reader) FromBytes(name string, data []byte) (*Bundle, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return r.FromZip(bytes.NewReader(data), int64(len(data)), name)
	}
	if int64(len(data)) > r.opts.MaxEntryBytes {
		return nil, fmt.Errorf("read %s: %w", name, ErrEntryTooLarge)
	}
	return r.FromSource(name, data), nil
}

// FromSource wraps a single source file as a bundle without an analysis
// entry.
func (r *Reader) FromSource(name string, src []byte) *Bundle {
	return &Bundle{Name: name, SourceName: name, Source: src}
}

// FromZip loads a bundle from a zip archive.
//
// Description:
//
//	Entries are scanned in archive order. When several entries end in the
//	same suffix the last one wins. Directories are ignored.
//
// Inputs:
//
//	ra   - The archive content.
//	size - The archive size in bytes.
//	name - Display name of the bundle.
//
// Outputs:
//
//	*Bundle - The loaded bundle.
//	error   - *MissingEntryError, ErrEntryTooLarge, or a zip format error.
func (r *Reader) FromZip(ra io.ReaderAt, size int64, name string) (*Bundle, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("read zip %s: %w", name, err)
	}

	var source, analysis *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(f.Name, r.opts.SourceSuffix) {
			source = f
		}
		if strings.HasSuffix(f.Name, r.opts.AnalysisSuffix) {
			analysis = f
		}
	}
	if source == nil {
		return nil, &MissingEntryError{Bundle: name, Suffix: r.opts.SourceSuffix}
	}

	src, err := r.readEntry(source)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Name: name, SourceName: path.Clean(source.Name), Source: src}

	if analysis != nil {
		raw, err := r.readEntry(analysis)
		if err != nil {
			return nil, err
		}
		b.Provided = prettyJSON(raw)
		r.logger.Debug("bundle carries analysis entry",
			slog.String("bundle", name),
			slog.String("entry", analysis.Name),
			slog.Int("bytes", len(raw)),
		)
	}
	return b, nil
}

func (r *Reader) readEntry(f *zip.File) ([]byte, error) {
	if int64(f.UncompressedSize64) > r.opts.MaxEntryBytes {
		return nil, fmt.Errorf("read %s: %w", f.Name, ErrEntryTooLarge)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := r.readLimited(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// readLimited reads at most MaxEntryBytes, failing with ErrEntryTooLarge
// when more is available. Declared sizes in zip headers are not trusted.
func (r *Reader) readLimited(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, r.opts.MaxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.opts.MaxEntryBytes {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}

// prettyJSON indents raw when it is valid JSON and returns it unchanged
// otherwise.
func prettyJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}
