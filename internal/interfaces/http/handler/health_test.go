package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"z-novel-context-api/internal/infrastructure/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthEngine(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)
	return r
}

func TestHealthAndLive(t *testing.T) {
	engine := newHealthEngine(NewHealthHandler(nil, nil, nil, "1.2.0"))

	rec := perform(t, engine, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)

	rec = perform(t, engine, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		h      *HealthHandler
		status int
		checks map[string]string
	}{
		{
			name:   "all ok",
			h:      &HealthHandler{pg: fakeChecker{}, redis: fakeChecker{}},
			status: http.StatusOK,
			checks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:   "redis error",
			h:      &HealthHandler{pg: fakeChecker{}, redis: fakeChecker{err: errors.New("connection refused")}},
			status: http.StatusServiceUnavailable,
			checks: map[string]string{"postgres": "ok", "redis": "error"},
		},
		{
			name: "llm degraded keeps ready",
			h: &HealthHandler{
				pg:        fakeChecker{},
				redis:     fakeChecker{},
				providers: &fakeCatalog{def: "openai", errs: map[string]error{"openai": errors.New("missing api key")}},
			},
			status: http.StatusOK,
			checks: map[string]string{"postgres": "ok", "redis": "ok", "llm": "degraded"},
		},
		{
			name: "llm ok",
			h: &HealthHandler{
				pg:        fakeChecker{},
				redis:     fakeChecker{},
				providers: &fakeCatalog{def: "openai", providers: map[string]llm.Provider{"openai": &fakeProvider{}}},
			},
			status: http.StatusOK,
			checks: map[string]string{"llm": "ok"},
		},
		{
			name:   "not configured",
			h:      NewHealthHandler(nil, nil, nil, ""),
			status: http.StatusServiceUnavailable,
			checks: map[string]string{"postgres": "missing", "redis": "missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(t, newHealthEngine(tt.h), http.MethodGet, "/ready", nil)
			assert.Equal(t, tt.status, rec.Code)

			var resp readinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			for name, status := range tt.checks {
				require.Contains(t, resp.Checks, name)
				assert.Equal(t, status, resp.Checks[name].Status)
			}
		})
	}
}
