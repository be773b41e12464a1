// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/journal"
)

type fakeStatusSource struct {
	status Status
	err    error
}

func (f fakeStatusSource) Status(context.Context) (Status, error) {
	return f.status, f.err
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestHealthCheck(t *testing.T) {
	router := newRouter()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetStatus(t *testing.T) {
	router := newRouter()
	router.GET("/status", GetStatus(fakeStatusSource{status: Status{
		Target:        "ledger-a",
		Phase:         "extracting",
		ConflictState: "armed",
		RosterSize:    6,
		Funds:         1234.5,
	}}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ledger-a", got.Target)
	assert.Equal(t, "armed", got.ConflictState)
	assert.Equal(t, 6, got.RosterSize)
}

func TestGetStatusSourceFailure(t *testing.T) {
	router := newRouter()
	router.GET("/status", GetStatus(fakeStatusSource{err: errors.New("environment gone")}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func seededJournal(t *testing.T, n int) *journal.Memory {
	t.Helper()
	jrnl := journal.NewMemory(64)
	for i := 0; i < n; i++ {
		require.NoError(t, jrnl.Append(context.Background(), journal.Record{
			BatchID: fmt.Sprintf("batch-%d", i),
			Target:  "ledger-a",
			Action:  "extract",
			Slots:   i + 1,
		}))
	}
	return jrnl
}

func TestListBatches(t *testing.T) {
	router := newRouter()
	router.GET("/batches", ListBatches(seededJournal(t, 3), 50))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Batches []journal.Record `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Batches, 3)
	assert.Equal(t, "batch-2", body.Batches[0].BatchID, "newest first")
}

func TestListBatchesCapsAtQueryParam(t *testing.T) {
	router := newRouter()
	router.GET("/batches", ListBatches(seededJournal(t, 5), 50))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches?n=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Batches []journal.Record `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Batches, 2)
}

func TestListBatchesQueryParamCannotExceedLimit(t *testing.T) {
	router := newRouter()
	router.GET("/batches", ListBatches(seededJournal(t, 5), 3))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches?n=100", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Batches []journal.Record `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Batches, 3, "the configured limit is a hard cap")
}

func TestListBatchesRejectsBadQueryParam(t *testing.T) {
	router := newRouter()
	router.GET("/batches", ListBatches(seededJournal(t, 1), 50))

	for _, raw := range []string{"zero", "0", "-3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches?n="+raw, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "n=%s", raw)
	}
}

func TestListBatchesEmptyJournal(t *testing.T) {
	router := newRouter()
	router.GET("/batches", ListBatches(journal.NewMemory(8), 50))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"batches":[]}`, w.Body.String())
}
