// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the swarm service's HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/journal"
)

// Status is the service's self-reported state.
type Status struct {
	// Target is the name of the target currently driven, if any.
	Target string `json:"target"`

	// Phase is the target state machine's current phase.
	Phase string `json:"phase"`

	// ConflictState is the crew synchronizer's current state.
	ConflictState string `json:"conflict_state"`

	// RosterSize is the current crew roster size.
	RosterSize int `json:"roster_size"`

	// Funds is the actor's current funds.
	Funds float64 `json:"funds"`
}

// StatusSource produces a fresh Status snapshot.
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus returns the service's current scheduling and crew state.
func GetStatus(src StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := src.Status(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// ListBatches returns recent journaled dispatches, newest first. The "n"
// query parameter caps the count, bounded by the configured limit.
func ListBatches(jrnl journal.Journal, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := limit
		if raw := c.Query("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
				return
			}
			if parsed < n {
				n = parsed
			}
		}
		records, err := jrnl.Recent(c.Request.Context(), n)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		c.JSON(http.StatusOK, gin.H{"batches": records})
	}
}
