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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
)

// latestRef selects the session's current result in diff requests.
const latestRef = "latest"

// requireStore writes 503 and returns false when snapshots are disabled.
func (h *Handlers) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "snapshot storage not configured",
			Code:  CodeSnapshotsNotAvailable,
		})
		return false
	}
	return true
}

// HandleSaveSnapshot handles POST /v1/lens/snapshots.
//
// Description:
//
//	Saves the latest result as a snapshot with an optional label. Results
//	are already recorded automatically when a store is configured, so this
//	mostly attaches a label to the current one.
//
// Request Body (optional):
//
//	{"label": "before-refactor"}
//
// Response:
//
//	200 OK: SaveSnapshotResponse
//	400 Bad Request: Invalid body
//	404 Not Found: No result to save
//	503 Service Unavailable: Snapshot storage not configured
func (h *Handlers) HandleSaveSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSaveSnapshot")

	if !h.requireStore(c) {
		return
	}

	var req SaveSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid request body: " + err.Error(),
				Code:  CodeInvalidRequest,
			})
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  CodeInvalidRequest,
		})
		return
	}

	r := h.latest(c)
	if r == nil {
		return
	}

	meta, err := h.store.Save(c.Request.Context(), r, req.Label)
	if err != nil {
		logger.Error("snapshot save failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to save snapshot",
			Code:  CodeSnapshotSaveFailed,
		})
		return
	}

	logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("label", meta.Label),
	)
	c.JSON(http.StatusOK, SaveSnapshotResponse{SnapshotID: meta.SnapshotID, Metadata: meta})
}

// HandleListSnapshots handles GET /v1/lens/snapshots.
//
// Query Parameters:
//
//	bundle: Only list snapshots of this bundle name (optional)
//	limit:  Maximum results, default 100 (optional)
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListSnapshots")

	if !h.requireStore(c) {
		return
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snaps, err := h.store.List(c.Request.Context(), c.Query("bundle"), limit)
	if err != nil {
		logger.Error("snapshot list failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to list snapshots",
			Code:  CodeSnapshotLoadFailed,
		})
		return
	}
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: snaps, Count: len(snaps)})
}

// HandleGetSnapshot handles GET /v1/lens/snapshots/:id.
func (h *Handlers) HandleGetSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSnapshot")

	if !h.requireStore(c) {
		return
	}

	r, meta, err := h.store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeSnapshotError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, SnapshotResponse{Metadata: meta, Result: r})
}

// HandleDeleteSnapshot handles DELETE /v1/lens/snapshots/:id.
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSnapshot")

	if !h.requireStore(c) {
		return
	}

	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, analysis.ErrSnapshotNotFound) {
			h.writeSnapshotError(c, logger, err)
			return
		}
		logger.Error("snapshot delete failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to delete snapshot",
			Code:  CodeSnapshotDeleteFailed,
		})
		return
	}

	logger.Info("snapshot deleted", slog.String("snapshot_id", id))
	c.Status(http.StatusNoContent)
}

// HandleDiffSnapshots handles GET /v1/lens/snapshots/diff.
//
// Query Parameters:
//
//	base:   Snapshot ID of the older side (required)
//	target: Snapshot ID of the newer side, or "latest" for the session's
//	        current result. Default: latest.
//
// Response:
//
//	200 OK: analysis.ResultDiff
//	400 Bad Request: Missing base
//	404 Not Found: Snapshot not found, or no current result for "latest"
func (h *Handlers) HandleDiffSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiffSnapshots")

	if !h.requireStore(c) {
		return
	}

	baseID := c.Query("base")
	if baseID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "base parameter is required",
			Code:  CodeMissingParameter,
		})
		return
	}

	base, _, err := h.store.Load(c.Request.Context(), baseID)
	if err != nil {
		h.writeSnapshotError(c, logger, err)
		return
	}

	var target *analysis.Result
	if targetID := c.DefaultQuery("target", latestRef); targetID == latestRef {
		if target = h.latest(c); target == nil {
			return
		}
	} else if target, _, err = h.store.Load(c.Request.Context(), targetID); err != nil {
		h.writeSnapshotError(c, logger, err)
		return
	}

	d, err := analysis.Diff(base, target)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handlers) writeSnapshotError(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, analysis.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  CodeSnapshotNotFound,
		})
		return
	}
	logger.Error("snapshot load failed", slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "failed to load snapshot",
		Code:  CodeSnapshotLoadFailed,
	})
}
