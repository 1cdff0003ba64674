package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/infrastructure/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
}

func perform(t *testing.T, engine *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) (envelope, T) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var data T
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &data))
	}
	return env, data
}

type fakeGenerator struct {
	mu       sync.Mutex
	input    *generation.Input
	out      *generation.Output
	chunks   []llm.StreamChunk
	estimate llm.CostEstimate
	prepared *generation.Prepared
	err      error
}

func (g *fakeGenerator) record(in *generation.Input) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.input = in
}

func (g *fakeGenerator) last() *generation.Input {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.input
}

func (g *fakeGenerator) Generate(_ context.Context, in *generation.Input) (*generation.Output, error) {
	g.record(in)
	return g.out, g.err
}

func (g *fakeGenerator) Stream(_ context.Context, in *generation.Input) (<-chan llm.StreamChunk, *generation.Prepared, error) {
	g.record(in)
	if g.err != nil {
		return nil, nil, g.err
	}
	ch := make(chan llm.StreamChunk, len(g.chunks))
	for _, c := range g.chunks {
		ch <- c
	}
	close(ch)
	return ch, g.prepared, nil
}

func (g *fakeGenerator) EstimateCost(_ context.Context, in *generation.Input) (llm.CostEstimate, *generation.Prepared, error) {
	g.record(in)
	return g.estimate, g.prepared, g.err
}

type fakeAssembler struct {
	req    *contextprovider.AssemblyRequest
	result *contextprovider.AssemblyResult
}

func (a *fakeAssembler) Assemble(_ context.Context, req *contextprovider.AssemblyRequest) *contextprovider.AssemblyResult {
	a.req = req
	return a.result
}

type fakeProvider struct {
	vendor      string
	model       string
	models      []string
	modelsErr   error
	validateErr error
}

func (p *fakeProvider) Name() string  { return p.vendor }
func (p *fakeProvider) Model() string { return p.model }

func (p *fakeProvider) Generate(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{}, nil
}

func (p *fakeProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func (p *fakeProvider) EstimateCost(*llm.ChatRequest) (llm.CostEstimate, error) {
	return llm.CostEstimate{}, nil
}

func (p *fakeProvider) ValidateCredential(context.Context) error     { return p.validateErr }
func (p *fakeProvider) ListModels(context.Context) ([]string, error) { return p.models, p.modelsErr }
func (p *fakeProvider) SetProxy(string, int) error                   { return nil }
func (p *fakeProvider) DisableProxy()                                {}
func (p *fakeProvider) ProxyEnabled() bool                           { return false }

type fakeCatalog struct {
	names     []string
	def       string
	providers map[string]llm.Provider
	errs      map[string]error
	built     *llm.Identity
	buildWith llm.Provider
}

func (c *fakeCatalog) Names() []string     { return c.names }
func (c *fakeCatalog) DefaultName() string { return c.def }

func (c *fakeCatalog) Get(_ context.Context, name string) (llm.Provider, error) {
	if err, ok := c.errs[name]; ok {
		return nil, err
	}
	p, ok := c.providers[name]
	if !ok {
		return nil, llm.ErrProviderNotConfigured
	}
	return p, nil
}

func (c *fakeCatalog) Build(_ context.Context, _ string, id llm.Identity) (llm.Provider, error) {
	c.built = &id
	return c.buildWith, nil
}

type fakeTraceReader struct {
	limit         int
	correlationID string
	traces        []*entity.LLMTrace
	err           error
}

func (r *fakeTraceReader) Recent(_ context.Context, limit int, correlationID string) ([]*entity.LLMTrace, error) {
	r.limit = limit
	r.correlationID = correlationID
	return r.traces, r.err
}

type fakeChecker struct {
	err error
}

func (c fakeChecker) HealthCheck(context.Context) error { return c.err }
