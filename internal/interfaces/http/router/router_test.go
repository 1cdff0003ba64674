package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"z-novel-context-api/internal/config"
	"z-novel-context-api/internal/interfaces/http/handler"
	"z-novel-context-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "z-novel-context-api"
	cfg.App.Env = "test"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	return cfg
}

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, req)
	return rec
}

func TestRouterSystemEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New(testConfig(), Handlers{Health: handler.NewHealthHandler(nil, nil, nil, "dev")}, nil)

	rec := serve(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRegistersV1Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New(testConfig(), Handlers{
		Context:    handler.NewContextHandler(nil),
		Generation: handler.NewGenerationHandler(nil),
		Provider:   handler.NewProviderHandler(nil),
		Trace:      handler.NewTraceHandler(nil),
	}, nil)

	want := map[string]bool{
		"POST /v1/novels/:nid/context":      false,
		"POST /v1/generate":                 false,
		"POST /v1/generate/stream":          false,
		"POST /v1/generate/preview":         false,
		"GET /v1/providers":                 false,
		"GET /v1/providers/:name/models":    false,
		"POST /v1/providers/:name/validate": false,
		"GET /v1/traces":                    false,
	}
	for _, route := range r.Engine().Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, route)
	}

	rec := serve(r, http.MethodGet, "/v1/traces")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
