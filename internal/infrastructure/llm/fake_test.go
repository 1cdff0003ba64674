package llm

import (
	"context"
	"sync/atomic"
)

// scriptedProvider 按脚本依次返回错误，脚本用完后成功
type scriptedProvider struct {
	errs  []error
	calls atomic.Int32
}

func (p *scriptedProvider) next() error {
	n := int(p.calls.Add(1)) - 1
	if n < len(p.errs) {
		return p.errs[n]
	}
	return nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Generate(context.Context, *ChatRequest) (*ChatResponse, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	return &ChatResponse{Content: "ok"}, nil
}

func (p *scriptedProvider) Stream(context.Context, *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Delta: "ok"}
	ch <- StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) EstimateCost(*ChatRequest) (CostEstimate, error) {
	return CostEstimate{}, nil
}
func (p *scriptedProvider) ValidateCredential(context.Context) error     { return nil }
func (p *scriptedProvider) ListModels(context.Context) ([]string, error) { return nil, nil }
func (p *scriptedProvider) SetProxy(string, int) error                   { return nil }
func (p *scriptedProvider) DisableProxy()                                {}
func (p *scriptedProvider) ProxyEnabled() bool                           { return false }

func userRequest(text string) *ChatRequest {
	return &ChatRequest{Messages: []Message{{Role: RoleUser, Content: text}}}
}

func collect(ch <-chan StreamChunk) []StreamChunk {
	var out []StreamChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}
