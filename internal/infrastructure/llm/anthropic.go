package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"z-novel-context-api/pkg/logger"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	// Messages API 要求必须给出 max_tokens
	anthropicDefaultMaxTokens = 4096
)

// AnthropicProvider Anthropic Messages API
type AnthropicProvider struct {
	*base
}

// NewAnthropicProvider 创建 Anthropic Provider
func NewAnthropicProvider(opts Options) (*AnthropicProvider, error) {
	opts.Identity.Vendor = VendorAnthropic
	if opts.Identity.BaseURL == "" {
		opts.Identity.BaseURL = defaultAnthropicBaseURL
	}
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	return &AnthropicProvider{base: b}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

// anthropicEvent SSE 事件，按 type 区分
type anthropicEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) buildRequest(req *ChatRequest, stream bool) *anthropicRequest {
	ar := &anthropicRequest{
		Model:       p.modelFor(req),
		MaxTokens:   p.maxTokensFor(req),
		Temperature: p.temperatureFor(req),
		Stream:      stream,
	}
	if ar.MaxTokens <= 0 {
		ar.MaxTokens = anthropicDefaultMaxTokens
	}
	var system []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := string(m.Role)
		if role != string(RoleAssistant) {
			role = string(RoleUser)
		}
		ar.Messages = append(ar.Messages, anthropicMessage{Role: role, Content: m.Content})
	}
	ar.System = strings.Join(system, "\n\n")
	return ar
}

func (p *AnthropicProvider) newHTTPRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	httpReq, err := newJSONRequest(ctx, p.Name(), method, joinURL(p.identity.BaseURL, path), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.identity.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	return httpReq, nil
}

// Generate 单次生成
func (p *AnthropicProvider) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	httpReq, err := p.newHTTPRequest(ctx, http.MethodPost, "v1/messages", p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	var ar anthropicResponse
	if err := doJSON(p.Client(), httpReq, p.Name(), &ar); err != nil {
		return nil, err
	}

	resp := &ChatResponse{Model: p.modelFor(req), FinishReason: ar.StopReason}
	if ar.Model != "" {
		resp.Model = ar.Model
	}
	var sb strings.Builder
	for _, c := range ar.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	resp.Content = sb.String()
	resp.Usage = anthropicToUsage(ar.Usage)
	return resp, nil
}

// Stream 流式生成
func (p *AnthropicProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, http.MethodPost, "v1/messages", p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.Client().Do(httpReq)
	if err != nil {
		return nil, classify(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, httpError(p.Name(), resp)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		var usage anthropicUsage
		var finish string
		stopped := false
		err := readSSE(ctx, resp.Body, func(_ string, data string) (bool, error) {
			var ev anthropicEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				logger.Debug(ctx, "skip malformed anthropic event", "error", err.Error())
				return false, nil
			}
			switch ev.Type {
			case "message_start":
				if ev.Message != nil {
					usage.InputTokens = ev.Message.Usage.InputTokens
				}
			case "content_block_delta":
				if ev.Delta != nil && ev.Delta.Text != "" {
					if !sendChunk(ctx, ch, StreamChunk{Delta: ev.Delta.Text}) {
						return true, ctx.Err()
					}
				}
			case "message_delta":
				if ev.Delta != nil && ev.Delta.StopReason != "" {
					finish = ev.Delta.StopReason
				}
				if ev.Usage != nil {
					usage.OutputTokens = ev.Usage.OutputTokens
				}
			case "message_stop":
				stopped = true
				return true, nil
			case "error":
				msg := "stream error"
				if ev.Error != nil {
					msg = ev.Error.Type + ": " + ev.Error.Message
				}
				return true, Transient(p.Name(), 0, errors.New(msg))
			}
			return false, nil
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sendChunk(ctx, ch, StreamChunk{Done: true, Err: classify(p.Name(), err)})
			return
		}
		if !stopped && finish == "" {
			logger.Warn(ctx, "anthropic stream ended without message_stop")
		}
		sendChunk(ctx, ch, StreamChunk{Done: true, FinishReason: finish, Usage: anthropicToUsage(usage)})
	}()
	return ch, nil
}

// ValidateCredential 通过模型列表接口校验凭证
func (p *AnthropicProvider) ValidateCredential(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	if err := p.credentialCheck(); err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, http.MethodGet, "v1/models", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(p.Client(), httpReq, p.Name(), &body); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(body.Data))
	for _, m := range body.Data {
		models = append(models, m.ID)
	}
	sort.Strings(models)
	return models, nil
}

func anthropicToUsage(u anthropicUsage) *Usage {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return nil
	}
	return &Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
}
