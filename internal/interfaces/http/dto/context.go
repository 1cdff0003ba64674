// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"z-novel-context-api/internal/application/contextprovider"
)

// ContextPreviewRequest 上下文组装预览请求
type ContextPreviewRequest struct {
	ContextSelection
	UserID string `json:"user_id,omitempty"`
}

// ToAssemblyRequest 转换为组装请求
func (r *ContextPreviewRequest) ToAssemblyRequest(novelID string) *contextprovider.AssemblyRequest {
	req := r.toRequest(novelID)
	req.UserID = r.UserID
	return &contextprovider.AssemblyRequest{
		Request:   req,
		Refs:      contextprovider.ParseRefs(r.Refs),
		MaxTokens: r.MaxTokens,
	}
}

// FragmentResponse 组装片段
type FragmentResponse struct {
	Kind      string `json:"kind"`
	ContextID string `json:"context_id"`
	Markup    string `json:"markup,omitempty"`
}

// ContextSummary 组装结果摘要
type ContextSummary struct {
	Tokens    int                `json:"tokens"`
	Fragments []FragmentResponse `json:"fragments"`
	Skipped   []string           `json:"skipped,omitempty"`
	Truncated []string           `json:"truncated,omitempty"`
}

// ContextPreviewResponse 上下文组装预览
type ContextPreviewResponse struct {
	Markup string `json:"markup"`
	ContextSummary
}

// ToContextSummary 转换组装结果，不含片段正文
func ToContextSummary(r *contextprovider.AssemblyResult) *ContextSummary {
	if r == nil {
		return nil
	}
	s := &ContextSummary{
		Tokens:    r.Tokens,
		Fragments: make([]FragmentResponse, 0, len(r.Fragments)),
		Skipped:   refStrings(r.Skipped),
		Truncated: refStrings(r.Truncated),
	}
	for _, f := range r.Fragments {
		s.Fragments = append(s.Fragments, FragmentResponse{Kind: string(f.Kind), ContextID: f.ContextID})
	}
	return s
}

// ToContextPreviewResponse 转换组装结果，包含片段正文
func ToContextPreviewResponse(r *contextprovider.AssemblyResult) *ContextPreviewResponse {
	if r == nil {
		return &ContextPreviewResponse{ContextSummary: ContextSummary{Fragments: []FragmentResponse{}}}
	}
	resp := &ContextPreviewResponse{Markup: r.Markup, ContextSummary: *ToContextSummary(r)}
	for i, f := range r.Fragments {
		resp.Fragments[i].Markup = f.Markup
	}
	return resp
}

func refStrings(refs []contextprovider.ContextRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}
