package llm

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI 兼容网关的默认地址
var compatibleBaseURLs = map[string]string{
	VendorOpenRouter:  "https://openrouter.ai/api/v1",
	VendorSiliconFlow: "https://api.siliconflow.cn/v1",
	VendorDeepSeek:    "https://api.deepseek.com/v1",
}

// CompatibleProvider 使用 openai-go SDK 访问 OpenAI 兼容网关（OpenRouter、SiliconFlow、DeepSeek）
type CompatibleProvider struct {
	*base
	mu     sync.RWMutex
	client openaisdk.Client
}

// NewCompatibleProvider 创建 OpenAI 兼容 Provider
func NewCompatibleProvider(opts Options) (*CompatibleProvider, error) {
	if opts.Identity.Vendor == "" {
		opts.Identity.Vendor = VendorOpenRouter
	}
	if opts.Identity.BaseURL == "" {
		opts.Identity.BaseURL = compatibleBaseURLs[opts.Identity.Vendor]
	}
	if opts.Identity.BaseURL == "" {
		return nil, Permanent(opts.Identity.Vendor, 0, ErrUnknownVendor)
	}
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	p := &CompatibleProvider{base: b}
	p.client = p.newClient(b.Client())
	b.onChange = func(hc *http.Client) {
		client := p.newClient(hc)
		p.mu.Lock()
		p.client = client
		p.mu.Unlock()
	}
	return p, nil
}

func (p *CompatibleProvider) newClient(hc *http.Client) openaisdk.Client {
	return openaisdk.NewClient(
		option.WithAPIKey(p.identity.APIKey),
		option.WithBaseURL(p.identity.BaseURL),
		option.WithHTTPClient(hc),
		// 重试统一由 RetryingProvider 负责
		option.WithMaxRetries(0),
	)
}

func (p *CompatibleProvider) sdk() openaisdk.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Generate 单次生成
func (p *CompatibleProvider) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	client := p.sdk()
	res, err := client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return nil, p.classifySDK(err)
	}

	resp := &ChatResponse{Model: p.modelFor(req)}
	if res == nil {
		return resp, nil
	}
	if res.Model != "" {
		resp.Model = res.Model
	}
	if len(res.Choices) > 0 {
		resp.Content = res.Choices[0].Message.Content
		resp.FinishReason = res.Choices[0].FinishReason
	}
	resp.Usage = fromSDKUsage(res.Usage)
	return resp, nil
}

// Stream 流式生成。首个事件到达前的错误同步返回，便于上层重试。
func (p *CompatibleProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	params := p.params(req)
	params.StreamOptions = openaisdk.ChatCompletionStreamOptionsParam{IncludeUsage: openaisdk.Bool(true)}

	client := p.sdk()
	stream := client.Chat.Completions.NewStreaming(ctx, params)
	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, p.classifySDK(err)
		}
		ch := make(chan StreamChunk, 1)
		ch <- StreamChunk{Done: true}
		close(ch)
		return ch, nil
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		var finish string
		var usage *Usage
		for {
			chunk := stream.Current()
			if u := fromSDKUsage(chunk.Usage); u != nil {
				usage = u
			}
			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				if choice.FinishReason != "" {
					finish = choice.FinishReason
				}
				if choice.Delta.Content != "" {
					if !sendChunk(ctx, ch, StreamChunk{Delta: choice.Delta.Content}) {
						return
					}
				}
			}
			if !stream.Next() {
				break
			}
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() == nil {
				sendChunk(ctx, ch, StreamChunk{Done: true, Err: p.classifySDK(err)})
			}
			return
		}
		sendChunk(ctx, ch, StreamChunk{Done: true, FinishReason: finish, Usage: usage})
	}()
	return ch, nil
}

// ValidateCredential 通过模型列表接口校验凭证
func (p *CompatibleProvider) ValidateCredential(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型
func (p *CompatibleProvider) ListModels(ctx context.Context) ([]string, error) {
	if err := p.credentialCheck(); err != nil {
		return nil, err
	}
	client := p.sdk()
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, p.classifySDK(err)
	}
	models := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	sort.Strings(models)
	return models, nil
}

// SupportsToolCalling OpenAI 兼容接口支持 tools 参数
func (p *CompatibleProvider) SupportsToolCalling() bool { return true }

func (p *CompatibleProvider) params(req *ChatRequest) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Model:    p.modelFor(req),
		Messages: toSDKMessages(req.Messages),
	}
	if n := p.maxTokensFor(req); n > 0 {
		params.MaxTokens = openaisdk.Int(int64(n))
	}
	if t := p.temperatureFor(req); t != nil {
		params.Temperature = openaisdk.Float(*t)
	}
	return params
}

func (p *CompatibleProvider) classifySDK(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		classified := ClassifyHTTPStatus(p.Name(), apiErr.StatusCode, "")
		if IsTransient(classified) {
			return Transient(p.Name(), apiErr.StatusCode, err)
		}
		return Permanent(p.Name(), apiErr.StatusCode, err)
	}
	return classify(p.Name(), err)
}

func toSDKMessages(messages []Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func fromSDKUsage(u openaisdk.CompletionUsage) *Usage {
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return nil
	}
	return &Usage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}

var _ ToolCallingProvider = (*CompatibleProvider)(nil)
