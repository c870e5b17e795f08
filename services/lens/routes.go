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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Lens routes with the router.
//
// Description:
//
//	Registers all /v1/lens/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//	The analyze endpoints additionally run behind analyzeLimit, which may
//	be nil.
//
// Inputs:
//
//	rg           - Gin router group (typically /v1)
//	handlers     - The handlers instance
//	analyzeLimit - Middleware guarding the analyze endpoints (optional)
//
// Analysis Endpoints:
//
//	POST /v1/lens/analyze - Analyze an uploaded bundle or source file
//	POST /v1/lens/analyze/ast - Analyze a posted ESTree document
//
// Result Endpoints:
//
//	GET  /v1/lens/latest - Full latest result
//	GET  /v1/lens/latest/metrics - Counts, extended metrics and quality with labels
//	GET  /v1/lens/latest/structure - Classes, functions, variables and calls
//	GET  /v1/lens/latest/diagrams - Diagram model, or Mermaid with format=mermaid
//	GET  /v1/lens/latest/ast - Syntax tree as ESTree JSON
//	GET  /v1/lens/latest/provided - The bundle's own analysis entry
//	GET  /v1/lens/stream - WebSocket push of result summaries
//
// Snapshot Endpoints:
//
//	POST   /v1/lens/snapshots - Save the latest result with a label
//	GET    /v1/lens/snapshots - List snapshots
//	GET    /v1/lens/snapshots/diff - Diff two snapshots
//	GET    /v1/lens/snapshots/:id - Load a snapshot
//	DELETE /v1/lens/snapshots/:id - Delete a snapshot
//
// Health Endpoints:
//
//	GET  /v1/lens/health - Service health
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, analyzeLimit gin.HandlerFunc) {
	lens := rg.Group("/lens")
	{
		analyze := []gin.HandlerFunc{}
		if analyzeLimit != nil {
			analyze = append(analyze, analyzeLimit)
		}
		lens.POST("/analyze", append(analyze, handlers.HandleAnalyze)...)
		lens.POST("/analyze/ast", append(analyze, handlers.HandleAnalyzeTree)...)

		lens.GET("/latest", handlers.HandleLatest)
		lens.GET("/latest/metrics", handlers.HandleLatestMetrics)
		lens.GET("/latest/structure", handlers.HandleLatestStructure)
		lens.GET("/latest/diagrams", handlers.HandleLatestDiagrams)
		lens.GET("/latest/ast", handlers.HandleLatestTree)
		lens.GET("/latest/provided", handlers.HandleLatestProvided)
		lens.GET("/stream", handlers.HandleStream)

		// diff must be registered before :id
		lens.POST("/snapshots", handlers.HandleSaveSnapshot)
		lens.GET("/snapshots", handlers.HandleListSnapshots)
		lens.GET("/snapshots/diff", handlers.HandleDiffSnapshots)
		lens.GET("/snapshots/:id", handlers.HandleGetSnapshot)
		lens.DELETE("/snapshots/:id", handlers.HandleDeleteSnapshot)

		lens.GET("/health", handlers.HandleHealth)
	}
}
