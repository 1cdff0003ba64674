package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow    llmCtxKey = "llm_workflow"
	llmCtxKeyProvider    llmCtxKey = "llm_provider"
	llmCtxKeyCorrelation llmCtxKey = "llm_correlation"
	llmCtxKeyDocument    llmCtxKey = "llm_document"
)

type documentScope struct {
	novelID string
	sceneID string
}

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyWorkflow)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

func ProviderFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyProvider)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

// WithCorrelation 显式指定调用的关联 ID
func WithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		return nil
	}
	id := strings.TrimSpace(correlationID)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyCorrelation, id)
}

// WithDocument 记录调用所属的小说与场景，用于推导关联 ID
func WithDocument(ctx context.Context, novelID, sceneID string) context.Context {
	if ctx == nil {
		return nil
	}
	scope := documentScope{novelID: strings.TrimSpace(novelID), sceneID: strings.TrimSpace(sceneID)}
	if scope.novelID == "" && scope.sceneID == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyDocument, scope)
}

// CorrelationFromContext 关联 ID：优先显式值，其次 "<novelID>:<sceneID>"
func CorrelationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(llmCtxKeyCorrelation).(string); ok && s != "" {
		return s
	}
	scope, ok := ctx.Value(llmCtxKeyDocument).(documentScope)
	if !ok {
		return ""
	}
	switch {
	case scope.novelID != "" && scope.sceneID != "":
		return scope.novelID + ":" + scope.sceneID
	case scope.novelID != "":
		return scope.novelID
	default:
		return scope.sceneID
	}
}
