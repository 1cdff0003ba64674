package callback

import (
	"context"
	"errors"
	"io"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/internal/observability/llmtrace"
)

// newChatModelCallbackHandler 模型调用监听器。
// 只补充当前追踪作用域里的用量与结束原因，调用计数由追踪装饰器负责。
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", service.WorkflowFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if scope := llmtrace.FromContext(ctx); scope != nil {
				attrs = append(attrs, attribute.String("llm.trace_id", scope.TraceID()))
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "eino.chat_model", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			annotate(ctx, output)
			endSpan(ctx, output, nil)
			return ctx
		},

		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			// 回调拿到的是流的副本，必须读完并关闭
			go func() {
				defer output.Close()
				var last *model.CallbackOutput
				for {
					frame, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						endSpan(ctx, last, err)
						return
					}
					annotate(ctx, frame)
					if frame != nil && frame.TokenUsage != nil {
						last = frame
					}
				}
				endSpan(ctx, last, nil)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			endSpan(ctx, nil, err)
			return ctx
		},
	}
}

// annotate 把监听到的用量与结束原因写入活动追踪作用域
func annotate(ctx context.Context, output *model.CallbackOutput) {
	if output == nil {
		return
	}
	if u := output.TokenUsage; u != nil {
		llmtrace.AnnotateUsage(ctx, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}
	if msg := output.Message; msg != nil && msg.ResponseMeta != nil {
		llmtrace.AnnotateFinishReason(ctx, msg.ResponseMeta.FinishReason)
	}
}

func endSpan(ctx context.Context, output *model.CallbackOutput, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if output != nil && output.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", output.TokenUsage.PromptTokens),
			attribute.Int("llm.completion_tokens", output.TokenUsage.CompletionTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}
