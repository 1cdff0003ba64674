package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"z-novel-context-api/internal/domain/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func do(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec = do(r, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDCarriesCorrelation(t *testing.T) {
	var got string
	r := newEngine(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		got = service.CorrelationFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationIDHeader, " c-9 ")
	do(r, req)
	assert.Equal(t, "c-9", got)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	r := newEngine(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := do(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["message"])
}

func TestRecoveryAfterStreamStarted(t *testing.T) {
	r := newEngine(Recovery())
	r.GET("/stream", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
		_, _ = c.Writer.WriteString("event: content\ndata: {}\n\n")
		c.Writer.Flush()
		panic("mid stream")
	})

	rec := do(r, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "internal server error")
}

func preflight(engine *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/v1/generate", nil)
	req.Header.Set("Origin", "http://writer.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return do(engine, req)
}

func TestCORSWildcardDisablesCredentials(t *testing.T) {
	r := newEngine(CORS(CORSConfig{}))
	r.POST("/v1/generate", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := preflight(r)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSExplicitOriginAllowsCredentials(t *testing.T) {
	r := newEngine(CORS(CORSConfig{AllowedOrigins: []string{"http://writer.example.com"}}))
	r.POST("/v1/generate", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := preflight(r)
	assert.Equal(t, "http://writer.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
