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
	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
	"github.com/AleutianAI/AleutianLens/services/lens/structure"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeMissingParameter      = "MISSING_PARAMETER"
	CodeUploadTooLarge        = "UPLOAD_TOO_LARGE"
	CodeEntryTooLarge         = "ENTRY_TOO_LARGE"
	CodeMissingEntry          = "MISSING_ENTRY"
	CodeParseError            = "PARSE_ERROR"
	CodeInvalidTree           = "INVALID_TREE"
	CodeAnalysisFailed        = "ANALYSIS_FAILED"
	CodeNoResult              = "NO_RESULT"
	CodeNoProvidedAnalysis    = "NO_PROVIDED_ANALYSIS"
	CodeNoTree                = "NO_TREE"
	CodeSnapshotsNotAvailable = "SNAPSHOTS_NOT_AVAILABLE"
	CodeSnapshotNotFound      = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotSaveFailed    = "SNAPSHOT_SAVE_FAILED"
	CodeSnapshotLoadFailed    = "SNAPSHOT_LOAD_FAILED"
	CodeSnapshotDeleteFailed  = "SNAPSHOT_DELETE_FAILED"
	CodeRateLimited           = "RATE_LIMITED"
)

// MetricsResponse is the body of GET /latest/metrics.
type MetricsResponse struct {
	ResultID string           `json:"result_id"`
	Snapshot metrics.Snapshot `json:"snapshot"`
	Extended metrics.Extended `json:"extended"`
	Quality  metrics.Quality  `json:"quality"`

	// Grade buckets Quality.Total as good, fair or poor.
	Grade string `json:"grade"`

	// ExtendedLabels and QualityLabels carry display labels in order.
	ExtendedLabels []metrics.Entry `json:"extended_labels"`
	QualityLabels  []metrics.Entry `json:"quality_labels"`
}

// StructureResponse is the body of GET /latest/structure.
type StructureResponse struct {
	ResultID  string          `json:"result_id"`
	Structure structure.Model `json:"structure"`
}

// MermaidResponse is the body of GET /latest/diagrams?format=mermaid.
type MermaidResponse struct {
	ResultID string `json:"result_id"`
	Class    string `json:"class"`
	Call     string `json:"call"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	HasResult        bool   `json:"has_result"`
	SnapshotsEnabled bool   `json:"snapshots_enabled"`
}

// SaveSnapshotRequest is the optional body of POST /snapshots.
type SaveSnapshotRequest struct {
	Label string `json:"label" validate:"max=128"`
}

// SaveSnapshotResponse is the body of a successful POST /snapshots.
type SaveSnapshotResponse struct {
	SnapshotID string                     `json:"snapshot_id"`
	Metadata   *analysis.SnapshotMetadata `json:"metadata"`
}

// ListSnapshotsResponse is the body of GET /snapshots.
type ListSnapshotsResponse struct {
	Snapshots []*analysis.SnapshotMetadata `json:"snapshots"`
	Count     int                          `json:"count"`
}

// SnapshotResponse is the body of GET /snapshots/:id.
type SnapshotResponse struct {
	Metadata *analysis.SnapshotMetadata `json:"metadata"`
	Result   *analysis.Result           `json:"result"`
}
