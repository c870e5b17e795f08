// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lens serves the analysis session over HTTP.
package lens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
	"github.com/AleutianAI/AleutianLens/services/lens/ast"
	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxUploadBytes bounds uploaded bundles when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

var errEmptyUpload = errors.New("upload is empty")

// Handlers holds the HTTP handlers for the lens endpoints.
//
// Thread Safety:
//
//	Safe for concurrent use. All state lives in the Session and the
//	SnapshotStore, which synchronize internally.
type Handlers struct {
	session   *analysis.Session
	reader    *bundle.Reader
	store     *analysis.SnapshotStore
	maxUpload int64
}

// NewHandlers creates handlers over session.
//
// Inputs:
//
//	session   - The analysis session. Must not be nil.
//	reader    - Bundle reader for uploads. Nil uses default options.
//	store     - Snapshot store. Nil disables the snapshot endpoints.
//	maxUpload - Upload size limit in bytes. Zero uses DefaultMaxUploadBytes.
func NewHandlers(session *analysis.Session, reader *bundle.Reader, store *analysis.SnapshotStore, maxUpload int64) *Handlers {
	if reader == nil {
		reader = bundle.NewReader(bundle.DefaultOptions(), nil)
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handlers{
		session:   session,
		reader:    reader,
		store:     store,
		maxUpload: maxUpload,
	}
}

// HandleAnalyze handles POST /v1/lens/analyze.
//
// Description:
//
//	Reads a bundle and analyzes it. The bundle is taken from, in order:
//	the "uri" query parameter (gs:// object), the multipart form field
//	"bundle", or the raw request body named by the "name" query parameter.
//	Zip archives are detected by content; anything else is treated as a
//	bare source file.
//
// Response:
//
//	200 OK: analysis.Result
//	400 Bad Request: Empty upload or invalid parameters
//	413 Request Entity Too Large: Upload or archive entry over the limit
//	422 Unprocessable Entity: Missing source entry or parse error
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")
	ctx := c.Request.Context()

	var b *bundle.Bundle
	var err error
	if uri := c.Query("uri"); uri != "" {
		if !bundle.IsGCS(uri) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("unsupported uri %q: only %s is accepted", uri, bundle.GCSScheme),
				Code:  CodeInvalidRequest,
			})
			return
		}
		b, err = h.reader.OpenGCS(ctx, uri)
	} else {
		b, err = h.readUpload(c)
	}
	if err != nil {
		h.session.RecordFailure(ctx, err)
		writeError(c, logger, err)
		return
	}

	r, err := h.session.Run(ctx, b)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	logger.Info("bundle analyzed",
		slog.String("id", r.ID),
		slog.String("bundle", r.BundleName),
		slog.Int("quality_total", r.Quality.Total),
	)
	c.JSON(http.StatusOK, r)
}

func (h *Handlers) readUpload(c *gin.Context) (*bundle.Bundle, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	var name string
	var data []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("bundle")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: multipart field \"bundle\": %v", errEmptyUpload, err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload: %w", err)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		name = fh.Filename
	} else {
		var err error
		if data, err = io.ReadAll(c.Request.Body); err != nil {
			return nil, err
		}
		name = c.DefaultQuery("name", "upload.js")
	}

	if len(data) == 0 {
		return nil, errEmptyUpload
	}
	return h.reader.FromBytes(name, data)
}

// HandleAnalyzeTree handles POST /v1/lens/analyze/ast.
//
// Description:
//
//	Analyzes an ESTree JSON document posted as the request body, skipping
//	the parser. The "name" query parameter names the result.
//
// Response:
//
//	200 OK: analysis.Result
//	400 Bad Request: Empty body or top-level value is not an object
//	422 Unprocessable Entity: Malformed JSON
func (h *Handlers) HandleAnalyzeTree(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyzeTree")
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	data, err := io.ReadAll(c.Request.Body)
	if err == nil && len(data) == 0 {
		err = errEmptyUpload
	}
	if err != nil {
		h.session.RecordFailure(ctx, err)
		writeError(c, logger, err)
		return
	}

	root, err := ast.DecodeESTree(data)
	if err != nil {
		h.session.RecordFailure(ctx, err)
		writeError(c, logger, err)
		return
	}

	r, err := h.session.RunTree(ctx, c.DefaultQuery("name", "tree.json"), root)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// latest writes 404 NO_RESULT and returns nil when nothing has been
// analyzed yet.
func (h *Handlers) latest(c *gin.Context) *analysis.Result {
	r := h.session.Latest()
	if r == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no analysis result yet",
			Code:  CodeNoResult,
		})
	}
	return r
}

// HandleLatest handles GET /v1/lens/latest.
func (h *Handlers) HandleLatest(c *gin.Context) {
	if r := h.latest(c); r != nil {
		c.JSON(http.StatusOK, r)
	}
}

// HandleLatestMetrics handles GET /v1/lens/latest/metrics.
func (h *Handlers) HandleLatestMetrics(c *gin.Context) {
	r := h.latest(c)
	if r == nil {
		return
	}
	c.JSON(http.StatusOK, MetricsResponse{
		ResultID:       r.ID,
		Snapshot:       r.Snapshot,
		Extended:       r.Extended,
		Quality:        r.Quality,
		Grade:          metrics.Grade(r.Quality.Total),
		ExtendedLabels: metrics.ExtendedEntries(r.Extended),
		QualityLabels:  metrics.QualityEntries(r.Quality),
	})
}

// HandleLatestStructure handles GET /v1/lens/latest/structure.
func (h *Handlers) HandleLatestStructure(c *gin.Context) {
	r := h.latest(c)
	if r == nil {
		return
	}
	c.JSON(http.StatusOK, StructureResponse{ResultID: r.ID, Structure: r.Structure})
}

// HandleLatestDiagrams handles GET /v1/lens/latest/diagrams.
//
// Query Parameters:
//
//	format: "json" (default) returns the diagram model, "mermaid" returns
//	        rendered Mermaid scripts.
//	kind:   With format=mermaid, "class" or "call" returns that script
//	        alone as text/plain.
func (h *Handlers) HandleLatestDiagrams(c *gin.Context) {
	r := h.latest(c)
	if r == nil {
		return
	}

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.JSON(http.StatusOK, r.Diagrams)
	case "mermaid":
		var m diagram.Mermaid
		switch kind := c.Query("kind"); kind {
		case "":
			c.JSON(http.StatusOK, MermaidResponse{
				ResultID: r.ID,
				Class:    m.ClassDiagram(r.Diagrams.Class),
				Call:     m.CallGraph(r.Diagrams.Call),
			})
		case "class":
			c.String(http.StatusOK, m.ClassDiagram(r.Diagrams.Class))
		case "call":
			c.String(http.StatusOK, m.CallGraph(r.Diagrams.Call))
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("unknown diagram kind %q", kind),
				Code:  CodeInvalidRequest,
			})
		}
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("unknown format %q", format),
			Code:  CodeInvalidRequest,
		})
	}
}

// HandleLatestTree handles GET /v1/lens/latest/ast.
func (h *Handlers) HandleLatestTree(c *gin.Context) {
	r := h.latest(c)
	if r == nil {
		return
	}
	if r.Tree == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "result has no syntax tree",
			Code:  CodeNoTree,
		})
		return
	}
	data, err := r.Tree.MarshalJSON()
	if err != nil {
		writeError(c, slog.With("handler", "HandleLatestTree"), err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// HandleLatestProvided handles GET /v1/lens/latest/provided.
//
// The bundle's own analysis entry is returned as JSON when it is valid JSON
// and as plain text otherwise.
func (h *Handlers) HandleLatestProvided(c *gin.Context) {
	r := h.latest(c)
	if r == nil {
		return
	}
	if r.ProvidedAnalysis == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "bundle carried no analysis entry",
			Code:  CodeNoProvidedAnalysis,
		})
		return
	}
	contentType := "text/plain; charset=utf-8"
	if json.Valid([]byte(r.ProvidedAnalysis)) {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(r.ProvidedAnalysis))
}

// HandleHealth handles GET /v1/lens/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		Version:          Version,
		HasResult:        h.session.Latest() != nil,
		SnapshotsEnabled: h.store != nil,
	})
}

// writeError maps an analysis or load error to a status and error code.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		perr     *ast.ParseError
		missing  *bundle.MissingEntryError
		tooLarge *http.MaxBytesError
		status   int
		code     string
	)
	switch {
	case errors.As(err, &tooLarge):
		status, code = http.StatusRequestEntityTooLarge, CodeUploadTooLarge
	case errors.Is(err, bundle.ErrEntryTooLarge), errors.Is(err, ast.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, CodeEntryTooLarge
	case errors.As(err, &missing):
		status, code = http.StatusUnprocessableEntity, CodeMissingEntry
	case errors.As(err, &perr):
		status, code = http.StatusUnprocessableEntity, CodeParseError
	case errors.Is(err, ast.ErrEmptyTree):
		status, code = http.StatusBadRequest, CodeInvalidTree
	case errors.Is(err, ast.ErrInvalidContent), errors.Is(err, errEmptyUpload):
		status, code = http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, analysis.ErrSnapshotNotFound):
		status, code = http.StatusNotFound, CodeSnapshotNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, CodeAnalysisFailed
	default:
		status, code = http.StatusInternalServerError, CodeAnalysisFailed
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	} else {
		logger.Warn("request rejected", slog.String("code", code), slog.String("error", err.Error()))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// getOrCreateRequestID returns the request's X-Request-ID, generating and
// echoing one when the client sent none.
func getOrCreateRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDHeader); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(RequestIDHeader, id)
	c.Header(RequestIDHeader, id)
	return id
}
