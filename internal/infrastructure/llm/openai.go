package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider 基于 Eino OpenAI ChatModel 的 Provider
type OpenAIProvider struct {
	*base
	mu   sync.RWMutex
	chat model.BaseChatModel
}

// NewOpenAIProvider 创建 OpenAI Provider
func NewOpenAIProvider(ctx context.Context, opts Options) (*OpenAIProvider, error) {
	if opts.Identity.Vendor == "" {
		opts.Identity.Vendor = VendorOpenAI
	}
	if opts.Identity.BaseURL == "" {
		opts.Identity.BaseURL = defaultOpenAIBaseURL
	}
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	p := &OpenAIProvider{base: b}
	chat, err := p.newChatModel(ctx, b.Client())
	if err != nil {
		return nil, err
	}
	p.chat = chat

	// 代理变更后重建 ChatModel
	b.onChange = func(client *http.Client) {
		chat, err := p.newChatModel(context.Background(), client)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.chat = chat
		p.mu.Unlock()
	}
	return p, nil
}

func (p *OpenAIProvider) newChatModel(ctx context.Context, client *http.Client) (model.BaseChatModel, error) {
	cfg := &einoopenai.ChatModelConfig{
		APIKey:     p.identity.APIKey,
		BaseURL:    p.identity.BaseURL,
		Model:      p.identity.Model,
		HTTPClient: client,
	}
	if p.maxTokens > 0 {
		cfg.MaxTokens = &p.maxTokens
	}
	if p.temperature != nil {
		cfg.Temperature = ptrFloat32(float32(*p.temperature))
	}
	chat, err := einoopenai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", p.identity.Vendor, err)
	}
	return chat, nil
}

func (p *OpenAIProvider) chatModel() model.BaseChatModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chat
}

// Generate 单次生成
func (p *OpenAIProvider) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	out, err := p.chatModel().Generate(p.callbackContext(ctx), toEinoMessages(req.Messages), p.modelOptions(req)...)
	if err != nil {
		return nil, classify(p.Name(), err)
	}

	resp := &ChatResponse{Model: p.modelFor(req)}
	if out == nil {
		return resp, nil
	}
	resp.Content = out.Content
	if meta := out.ResponseMeta; meta != nil {
		resp.FinishReason = meta.FinishReason
		resp.Usage = fromEinoUsage(meta.Usage)
	}
	return resp, nil
}

// Stream 流式生成
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	sr, err := p.chatModel().Stream(p.callbackContext(ctx), toEinoMessages(req.Messages), p.modelOptions(req)...)
	if err != nil {
		return nil, classify(p.Name(), err)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer sr.Close()

		var finish string
		var usage *Usage
		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				sendChunk(ctx, ch, StreamChunk{Done: true, FinishReason: finish, Usage: usage})
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					sendChunk(ctx, ch, StreamChunk{Done: true, Err: classify(p.Name(), err)})
				}
				return
			}
			if msg == nil {
				continue
			}
			if meta := msg.ResponseMeta; meta != nil {
				if meta.FinishReason != "" {
					finish = meta.FinishReason
				}
				if u := fromEinoUsage(meta.Usage); u != nil {
					usage = u
				}
			}
			if msg.Content == "" {
				continue
			}
			if !sendChunk(ctx, ch, StreamChunk{Delta: msg.Content}) {
				return
			}
		}
	}()
	return ch, nil
}

// ValidateCredential 通过模型列表接口校验凭证
func (p *OpenAIProvider) ValidateCredential(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	if err := p.credentialCheck(); err != nil {
		return nil, err
	}
	return listCompatibleModels(ctx, p.Client(), p.Name(), p.identity.BaseURL, p.identity.APIKey)
}

// SupportsToolCalling OpenAI ChatModel 支持工具调用
func (p *OpenAIProvider) SupportsToolCalling() bool { return true }

// callbackContext 注入 Eino 全局 callbacks，直接调用 ChatModel 时也能触发监听
func (p *OpenAIProvider) callbackContext(ctx context.Context) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      p.Name(),
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	})
}

func (p *OpenAIProvider) modelOptions(req *ChatRequest) []model.Option {
	opts := []model.Option{model.WithModel(p.modelFor(req))}
	if n := p.maxTokensFor(req); n > 0 {
		opts = append(opts, model.WithMaxTokens(n))
	}
	if t := p.temperatureFor(req); t != nil {
		opts = append(opts, model.WithTemperature(float32(*t)))
	}
	return opts
}

func toEinoMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func fromEinoUsage(u *schema.TokenUsage) *Usage {
	if u == nil || (u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0) {
		return nil
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return &Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: total}
}

// listCompatibleModels 调用 OpenAI 兼容的 GET /models
func listCompatibleModels(ctx context.Context, client *http.Client, vendor, baseURL, apiKey string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, "models"), nil)
	if err != nil {
		return nil, Permanent(vendor, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(client, req, vendor, &body); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(body.Data))
	for _, m := range body.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	sort.Strings(models)
	return models, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}

var _ ToolCallingProvider = (*OpenAIProvider)(nil)
