package callback

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/observability/llmtrace"
)

func scopedContext() (context.Context, *llmtrace.Scope, *entity.LLMTrace) {
	rec := &entity.LLMTrace{ID: "trace-1"}
	ctx, scope := llmtrace.WithScope(context.Background(), rec)
	return ctx, scope, rec
}

func TestOnEndAnnotatesScope(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx, _, rec := scopedContext()

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o"}})
	msg := schema.AssistantMessage("ok", nil)
	msg.ResponseMeta = &schema.ResponseMeta{FinishReason: "length"}
	h.OnEnd(ctx, nil, &model.CallbackOutput{
		Message:    msg,
		TokenUsage: &model.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
	})

	assert.Equal(t, 7, rec.Response.PromptTokens)
	assert.Equal(t, 10, rec.Response.TotalTokens)
	assert.Equal(t, "length", rec.Response.FinishReason)
}

func TestOnEndWithoutScope(t *testing.T) {
	h := newChatModelCallbackHandler()
	assert.NotPanics(t, func() {
		h.OnEnd(context.Background(), nil, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 1}})
		h.OnEnd(context.Background(), nil, nil)
	})
}

func TestStreamOutputAnnotatesScope(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx, scope, _ := scopedContext()

	final := schema.AssistantMessage("", nil)
	final.ResponseMeta = &schema.ResponseMeta{FinishReason: "stop"}
	frames := []*model.CallbackOutput{
		{Message: schema.AssistantMessage("he", nil)},
		{Message: final, TokenUsage: &model.TokenUsage{PromptTokens: 4, CompletionTokens: 2}},
	}
	h.OnEndWithStreamOutput(ctx, nil, schema.StreamReaderFromArray(frames))

	require.Eventually(t, func() bool {
		return scope.Snapshot().Response.FinishReason == "stop"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 6, scope.Snapshot().Response.TotalTokens)
}
