package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"z-novel-context-api/pkg/logger"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider Google Gemini generateContent API
type GeminiProvider struct {
	*base
}

// NewGeminiProvider 创建 Gemini Provider
func NewGeminiProvider(opts Options) (*GeminiProvider, error) {
	opts.Identity.Vendor = VendorGemini
	if opts.Identity.BaseURL == "" {
		opts.Identity.BaseURL = defaultGeminiBaseURL
	}
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{base: b}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// text 拼接第一个候选的所有文本片段
func (r *geminiResponse) text() (string, string) {
	if len(r.Candidates) == 0 {
		return "", ""
	}
	c := r.Candidates[0]
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), c.FinishReason
}

func (r *geminiResponse) usage() *Usage {
	if r.UsageMetadata == nil {
		return nil
	}
	u := r.UsageMetadata
	return &Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}

func (p *GeminiProvider) buildRequest(req *ChatRequest) *geminiRequest {
	gr := &geminiRequest{}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if gr.SystemInstruction == nil {
				gr.SystemInstruction = &geminiContent{}
			}
			gr.SystemInstruction.Parts = append(gr.SystemInstruction.Parts, geminiPart{Text: m.Content})
			continue
		}
		// Gemini 使用 model 表示助手
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	maxTokens, temperature := p.maxTokensFor(req), p.temperatureFor(req)
	if maxTokens > 0 || temperature != nil {
		gr.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: maxTokens, Temperature: temperature}
	}
	return gr
}

func (p *GeminiProvider) newHTTPRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	httpReq, err := newJSONRequest(ctx, p.Name(), method, joinURL(p.identity.BaseURL, path), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-goog-api-key", p.identity.APIKey)
	return httpReq, nil
}

// Generate 单次生成
func (p *GeminiProvider) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	model := p.modelFor(req)
	httpReq, err := p.newHTTPRequest(ctx, http.MethodPost, "models/"+model+":generateContent", p.buildRequest(req))
	if err != nil {
		return nil, err
	}
	var gr geminiResponse
	if err := doJSON(p.Client(), httpReq, p.Name(), &gr); err != nil {
		return nil, err
	}
	content, finish := gr.text()
	return &ChatResponse{Model: model, Content: content, FinishReason: finish, Usage: gr.usage()}, nil
}

// Stream 流式生成
func (p *GeminiProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.precheck(req); err != nil {
		return nil, err
	}
	model := p.modelFor(req)
	httpReq, err := p.newHTTPRequest(ctx, http.MethodPost, "models/"+model+":streamGenerateContent?alt=sse", p.buildRequest(req))
	if err != nil {
		return nil, err
	}

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

		var finish string
		var usage *Usage
		err := readSSE(ctx, resp.Body, func(_ string, data string) (bool, error) {
			var gr geminiResponse
			if err := json.Unmarshal([]byte(data), &gr); err != nil {
				logger.Debug(ctx, "skip malformed gemini event", "error", err.Error())
				return false, nil
			}
			delta, reason := gr.text()
			if reason != "" {
				finish = reason
			}
			if u := gr.usage(); u != nil {
				usage = u
			}
			if delta != "" && !sendChunk(ctx, ch, StreamChunk{Delta: delta}) {
				return true, ctx.Err()
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
		sendChunk(ctx, ch, StreamChunk{Done: true, FinishReason: finish, Usage: usage})
	}()
	return ch, nil
}

// ValidateCredential 通过模型列表接口校验凭证
func (p *GeminiProvider) ValidateCredential(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型
func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	if err := p.credentialCheck(); err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, http.MethodGet, "models", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(p.Client(), httpReq, p.Name(), &body); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}
	sort.Strings(models)
	return models, nil
}
