package llmtrace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/internal/infrastructure/llm"
)

// recordingSink 记录发布的追踪
type recordingSink struct {
	mu     sync.Mutex
	traces []*entity.LLMTrace
	ch     chan *entity.LLMTrace
	err    error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan *entity.LLMTrace, 16)}
}

func (s *recordingSink) Publish(_ context.Context, t *entity.LLMTrace) error {
	s.mu.Lock()
	s.traces = append(s.traces, t)
	s.mu.Unlock()
	s.ch <- t
	return s.err
}

func (s *recordingSink) wait(t *testing.T) *entity.LLMTrace {
	t.Helper()
	select {
	case tr := <-s.ch:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("trace not published")
		return nil
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

// stubProvider 由测试提供 Generate 与 Stream 行为
type stubProvider struct {
	generate func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
	stream   func(ctx context.Context, out chan<- llm.StreamChunk)
	openErr  error
	toolCall bool
	proxy    bool
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-1" }

func (p *stubProvider) Generate(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return p.generate(ctx, req)
}

func (p *stubProvider) Stream(ctx context.Context, _ *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		p.stream(ctx, ch)
	}()
	return ch, nil
}

func (p *stubProvider) EstimateCost(*llm.ChatRequest) (llm.CostEstimate, error) {
	return llm.CostEstimate{Cost: 1.5}, nil
}
func (p *stubProvider) ValidateCredential(context.Context) error { return nil }
func (p *stubProvider) ListModels(context.Context) ([]string, error) {
	return []string{"stub-1"}, nil
}
func (p *stubProvider) SetProxy(string, int) error { p.proxy = true; return nil }
func (p *stubProvider) DisableProxy()              { p.proxy = false }
func (p *stubProvider) ProxyEnabled() bool         { return p.proxy }
func (p *stubProvider) SupportsToolCalling() bool  { return p.toolCall }

func request(text string) *llm.ChatRequest {
	return &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: text}}}
}

func readAll(ch <-chan llm.StreamChunk) (string, []llm.StreamChunk) {
	var sb strings.Builder
	var chunks []llm.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
		if !llm.IsHeartbeat(c) {
			sb.WriteString(c.Delta)
		}
	}
	return sb.String(), chunks
}

func TestGenerateSucceeded(t *testing.T) {
	sink := newRecordingSink()
	var seen *Scope
	inner := &stubProvider{generate: func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		seen = FromContext(ctx)
		assert.True(t, seen.Active())
		return &llm.ChatResponse{Content: "答", FinishReason: "stop", Usage: &llm.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}}, nil
	}}
	p := Wrap(inner, sink)

	ctx := service.WithDocument(context.Background(), "n1", "s1")
	resp, err := p.Generate(ctx, request("问"))
	require.NoError(t, err)
	assert.Equal(t, "答", resp.Content)

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallSucceeded, tr.State)
	assert.Equal(t, "答", tr.Response.Content)
	assert.Equal(t, "stop", tr.Response.FinishReason)
	assert.Equal(t, 4, tr.Response.TotalTokens)
	assert.Equal(t, "n1:s1", tr.CorrelationID)
	assert.Equal(t, "stub", tr.Vendor)
	assert.False(t, tr.Request.Stream)
	require.Len(t, tr.Request.Messages, 1)
	assert.NotEmpty(t, tr.ID)
	assert.False(t, tr.Timing.EndedAt.IsZero())

	assert.False(t, seen.Active(), "scope must be cleared after terminal state")
	assert.Equal(t, 1, sink.count())
}

func TestGenerateTimingUsesClock(t *testing.T) {
	sink := newRecordingSink()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	ticks := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := base.Add(time.Duration(ticks) * 100 * time.Millisecond)
		ticks++
		return now
	}
	p := Wrap(&stubProvider{generate: func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: "ok"}, nil
	}}, sink, WithClock(clock))

	_, err := p.Generate(context.Background(), request("q"))
	require.NoError(t, err)

	tr := sink.wait(t)
	assert.Equal(t, base, tr.Timing.StartedAt)
	assert.Equal(t, int64(100), tr.Timing.RequestLatencyMs)
	assert.Equal(t, int64(200), tr.Timing.DurationMs)
}

func TestGenerateFailedKeepsError(t *testing.T) {
	sink := newRecordingSink()
	vendorErr := llm.Permanent("stub", 401, errors.New("bad key"))
	p := Wrap(&stubProvider{generate: func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, vendorErr
	}}, sink)

	req := request("问")
	req.Metadata = map[string]string{MetadataCorrelationID: "job-7"}
	_, err := p.Generate(context.Background(), req)
	require.ErrorIs(t, err, vendorErr)

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallFailed, tr.State)
	assert.Equal(t, "permanent", tr.Response.ErrorType)
	assert.Equal(t, entity.FinishReasonError, tr.Response.FinishReason)
	assert.Contains(t, tr.Response.Error, "bad key")
	assert.Equal(t, "job-7", tr.CorrelationID)
}

func TestGenerateListenerUsageFallback(t *testing.T) {
	sink := newRecordingSink()
	p := Wrap(&stubProvider{generate: func(ctx context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
		require.True(t, AnnotateUsage(ctx, 5, 6, 0))
		return &llm.ChatResponse{Content: "x"}, nil
	}}, sink)

	_, err := p.Generate(context.Background(), request("q"))
	require.NoError(t, err)
	tr := sink.wait(t)
	assert.Equal(t, 5, tr.Response.PromptTokens)
	assert.Equal(t, 11, tr.Response.TotalTokens)
}

func TestStreamReconstructsContentWithoutHeartbeats(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		out <- llm.HeartbeatChunk()
		time.Sleep(25 * time.Millisecond)
		for _, d := range []string{"h", "e", "l", "lo"} {
			out <- llm.StreamChunk{Delta: d}
			out <- llm.HeartbeatChunk()
		}
		out <- llm.StreamChunk{Done: true, FinishReason: "stop"}
	}}
	p := Wrap(inner, sink, WithHeartbeat(5*time.Millisecond))

	ch, err := p.Stream(context.Background(), request("q"))
	require.NoError(t, err)
	text, chunks := readAll(ch)
	assert.Equal(t, "hello", text)

	beats := 0
	for _, c := range chunks {
		if llm.IsHeartbeat(c) {
			beats++
		}
	}
	assert.Greater(t, beats, 0, "outward stream carries heartbeats")

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallSucceeded, tr.State)
	assert.Equal(t, "hello", tr.Response.Content)
	assert.NotContains(t, tr.Response.Content, llm.HeartbeatSentinel)
	assert.Equal(t, "stop", tr.Response.FinishReason)
	assert.True(t, tr.Request.Stream)
	// 首 token 延迟在 "h" 处计算，早于它的心跳不计
	assert.GreaterOrEqual(t, tr.Timing.FirstTokenLatencyMs, int64(25))
	assert.Equal(t, 1, sink.count())
}

func TestStreamPreservesListenerMetadata(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		out <- llm.StreamChunk{Delta: "abc"}
		AnnotateUsage(ctx, 10, 20, 30)
		AnnotateFinishReason(ctx, "length")
		out <- llm.StreamChunk{Done: true, FinishReason: "stop", Usage: &llm.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}}
	}}
	p := Wrap(inner, sink)

	ch, err := p.Stream(context.Background(), request("q"))
	require.NoError(t, err)
	readAll(ch)

	tr := sink.wait(t)
	assert.Equal(t, 10, tr.Response.PromptTokens)
	assert.Equal(t, 20, tr.Response.CompletionTokens)
	assert.Equal(t, 30, tr.Response.TotalTokens)
	assert.Equal(t, "length", tr.Response.FinishReason)
}

func TestStreamUsesChunkUsageWhenNoListener(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		out <- llm.StreamChunk{Delta: "abc"}
		out <- llm.StreamChunk{Done: true, FinishReason: "stop", Usage: &llm.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}}
	}}
	ch, err := Wrap(inner, sink).Stream(context.Background(), request("q"))
	require.NoError(t, err)
	readAll(ch)

	tr := sink.wait(t)
	assert.Equal(t, 3, tr.Response.TotalTokens)
	assert.Equal(t, "stop", tr.Response.FinishReason)
}

func TestStreamCancelledKeepsPartialContent(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		for _, d := range []string{"par", "tial"} {
			select {
			case out <- llm.StreamChunk{Delta: d}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}}
	p := Wrap(inner, sink, WithHeartbeat(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Stream(ctx, request("q"))
	require.NoError(t, err)

	var got strings.Builder
	for c := range ch {
		if llm.IsHeartbeat(c) {
			continue
		}
		got.WriteString(c.Delta)
		if got.String() == "partial" {
			cancel()
			break
		}
	}
	// 排空，确认通道会关闭
	for range ch {
	}

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallCancelled, tr.State)
	assert.Equal(t, entity.FinishReasonCancelled, tr.Response.FinishReason)
	assert.Equal(t, "partial", tr.Response.Content)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "published exactly once")
}

func TestStreamTimeoutIsFailure(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		select {
		case out <- llm.StreamChunk{Delta: "part"}:
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}}
	p := Wrap(inner, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ch, err := p.Stream(ctx, request("q"))
	require.NoError(t, err)
	for range ch {
	}

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallFailed, tr.State)
	assert.Equal(t, entity.FinishReasonError, tr.Response.FinishReason)
	assert.Equal(t, "timeout", tr.Response.ErrorType)
	assert.Contains(t, tr.Response.Error, context.DeadlineExceeded.Error())
	assert.Equal(t, "part", tr.Response.Content)
}

func TestGenerateTimeoutIsFailure(t *testing.T) {
	sink := newRecordingSink()
	inner := &stubProvider{generate: func(ctx context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := Wrap(inner, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, request("q"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallFailed, tr.State)
	assert.Equal(t, "timeout", tr.Response.ErrorType)
}

func TestStreamErrorChunk(t *testing.T) {
	sink := newRecordingSink()
	streamErr := llm.Transient("stub", 0, errors.New("connection reset"))
	inner := &stubProvider{stream: func(ctx context.Context, out chan<- llm.StreamChunk) {
		out <- llm.StreamChunk{Delta: "半"}
		out <- llm.StreamChunk{Done: true, Err: streamErr}
	}}
	ch, err := Wrap(inner, sink).Stream(context.Background(), request("q"))
	require.NoError(t, err)
	_, chunks := readAll(ch)
	require.NotEmpty(t, chunks)
	assert.ErrorIs(t, chunks[len(chunks)-1].Err, streamErr)

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallFailed, tr.State)
	assert.Equal(t, "半", tr.Response.Content)
	assert.Equal(t, "transient", tr.Response.ErrorType)
}

func TestStreamOpenError(t *testing.T) {
	sink := newRecordingSink()
	openErr := llm.Permanent("stub", 0, llm.ErrEmptyCredential)
	_, err := Wrap(&stubProvider{openErr: openErr}, sink).Stream(context.Background(), request("q"))
	require.ErrorIs(t, err, llm.ErrEmptyCredential)

	tr := sink.wait(t)
	assert.Equal(t, entity.LLMCallFailed, tr.State)
}

func TestSinkFailureIsNotSurfaced(t *testing.T) {
	sink := newRecordingSink()
	sink.err = errors.New("sink down")
	p := Wrap(&stubProvider{generate: func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: "ok"}, nil
	}}, sink)

	resp, err := p.Generate(context.Background(), request("q"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	sink.wait(t)
}

func TestDecoratorForwardsUntouched(t *testing.T) {
	inner := &stubProvider{toolCall: true}
	p := Wrap(inner, newRecordingSink())

	est, err := p.EstimateCost(request("q"))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, est.Cost, 1e-9)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"stub-1"}, models)
	assert.NoError(t, p.ValidateCredential(context.Background()))

	require.NoError(t, p.SetProxy("127.0.0.1", 8080))
	assert.True(t, p.ProxyEnabled())
	p.DisableProxy()
	assert.False(t, inner.proxy)

	assert.True(t, llm.SupportsToolCalling(p))
	inner.toolCall = false
	assert.False(t, llm.SupportsToolCalling(p))
	assert.Same(t, inner, p.Unwrap())
}

func TestAnnotateOutsideScope(t *testing.T) {
	assert.False(t, AnnotateUsage(context.Background(), 1, 2, 3))
	assert.False(t, AnnotateFinishReason(context.Background(), "stop"))
	assert.Nil(t, FromContext(context.Background()))

	ctx, scope := WithScope(context.Background(), &entity.LLMTrace{ID: "t1"})
	assert.True(t, AnnotateFinishReason(ctx, "stop"))
	scope.clear()
	scope.clear()
	assert.False(t, AnnotateFinishReason(ctx, "length"))
	assert.Nil(t, scope.finalize())
}
