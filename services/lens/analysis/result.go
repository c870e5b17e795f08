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
	"time"

	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

// ResultSchemaVersion is the version of the serialized Result.
// Increment when the JSON layout changes in a breaking way.
const ResultSchemaVersion = "1.0"

// Result is the complete output of one analysis.
//
// Description:
//
//	A Result is produced whole or not at all. Once returned it is never
//	mutated, so it may be shared between goroutines and handed to
//	subscribers without copying.
type Result struct {
	// SchemaVersion identifies the serialization format version.
	SchemaVersion string `json:"schema_version"`

	// ID uniquely identifies this analysis run.
	ID string `json:"id"`

	// BundleName is the name of the bundle the source came from.
	BundleName string `json:"bundle_name"`

	// FileName is the analyzed source entry.
	FileName string `json:"file_name"`

	// SourceHash is the hex SHA-256 of the source. Empty for trees
	// submitted without source.
	SourceHash string `json:"source_hash,omitempty"`

	// AnalyzedAt is when the analysis finished (UTC).
	AnalyzedAt time.Time `json:"analyzed_at"`

	// DurationMilli is the wall time spent analyzing.
	DurationMilli int64 `json:"duration_milli"`

	Snapshot  metrics.Snapshot `json:"snapshot"`
	Extended  metrics.Extended `json:"extended"`
	Quality   metrics.Quality  `json:"quality"`
	Structure structure.Model  `json:"structure"`
	Diagrams  diagram.Model    `json:"diagrams"`

	// ProvidedAnalysis is the bundle's precomputed analysis entry, shown
	// beside the computed result and never reprocessed.
	ProvidedAnalysis string `json:"provided_analysis,omitempty"`

	// Tree is the parsed syntax tree. It is kept in memory for display
	// and is not part of the serialized result.
	Tree *ast.Node `json:"-"`
}

// Summary is the compact form of a Result pushed to stream subscribers
// and listed in history views.
type Summary struct {
	ID         string           `json:"id"`
	BundleName string           `json:"bundle_name"`
	FileName   string           `json:"file_name"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
	Snapshot   metrics.Snapshot `json:"snapshot"`
	Quality    metrics.Quality  `json:"quality"`
}

// Summary returns the compact form of r.
func (r *Result) Summary() Summary {
	return Summary{
		ID:         r.ID,
		BundleName: r.BundleName,
		FileName:   r.FileName,
		AnalyzedAt: r.AnalyzedAt,
		Snapshot:   r.Snapshot,
		Quality:    r.Quality,
	}
}
