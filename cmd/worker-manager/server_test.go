package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workers/internal/report/orchestrator"
)

type fixedStatus orchestrator.SystemStatus

func (f fixedStatus) Status(context.Context) orchestrator.SystemStatus {
	return orchestrator.SystemStatus(f)
}

func clock() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }

func TestMux_Endpoints(t *testing.T) {
	status := fixedStatus{OverallReadiness: 70, TrainingAvailable: true, SectionsCount: 20, Recommendation: "⚠️ API non disponible - Mode fallback"}
	mux := newMux(status, func(context.Context) error { return nil }, clock)

	tests := []struct {
		path string
		code int
		key  string
		want interface{}
	}{
		{"/health", http.StatusOK, "status", "healthy"},
		{"/ready", http.StatusOK, "status", "ready"},
		{"/status", http.StatusOK, "overall_readiness", float64(70)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body[tt.key])
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMux_NotReady(t *testing.T) {
	mux := newMux(fixedStatus{}, func(context.Context) error { return errors.New("broker down") }, clock)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "broker down")
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, nil, "op")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(func() error { calls++; return errors.New("down") }, 2, time.Millisecond, nil, "op")
	assert.EqualError(t, err, "op failed after 2 attempts: down")
	assert.Equal(t, 2, calls)
}
