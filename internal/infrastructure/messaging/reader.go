package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/pkg/logger"
)

const (
	defaultReadLimit = 20
	maxReadLimit     = 200
	// 按关联 ID 过滤时最多回扫的条目数
	maxScan = 2000
)

// TraceReader 从追踪流倒序读取最近的记录
type TraceReader struct {
	client *redis.Client
	stream Stream
}

// NewTraceReader 创建追踪读取器
func NewTraceReader(client *redis.Client, stream Stream) *TraceReader {
	if stream == "" {
		stream = StreamLLMTrace
	}
	return &TraceReader{client: client, stream: stream}
}

// Recent 返回最新的 limit 条记录，新的在前；correlationID 非空时只返回匹配的记录
func (r *TraceReader) Recent(ctx context.Context, limit int, correlationID string) ([]*entity.LLMTrace, error) {
	ctx, span := tracer.Start(ctx, "reader.Recent",
		trace.WithAttributes(
			attribute.String("stream", string(r.stream)),
			attribute.Int("limit", limit),
		))
	defer span.End()

	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	count := int64(limit)
	if correlationID != "" {
		count = maxScan
	}

	entries, err := r.client.XRevRangeN(ctx, string(r.stream), "+", "-", count).Result()
	if err != nil {
		if err == redis.Nil {
			return []*entity.LLMTrace{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read trace stream: %w", err)
	}

	out := make([]*entity.LLMTrace, 0, limit)
	for _, xmsg := range entries {
		rec, ok := r.decode(ctx, xmsg, correlationID)
		if !ok {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// decode 解析单条消息，格式不对或关联 ID 不匹配的跳过
func (r *TraceReader) decode(ctx context.Context, xmsg redis.XMessage, correlationID string) (*entity.LLMTrace, bool) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.Warn(ctx, "invalid message format", "message_id", xmsg.ID)
		return nil, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		logger.Warn(ctx, "failed to unmarshal message", "message_id", xmsg.ID, "error", err.Error())
		return nil, false
	}
	if msg.Type != MessageTypeLLMTrace {
		return nil, false
	}
	if correlationID != "" && msg.CorrelationID != correlationID {
		return nil, false
	}

	var rec entity.LLMTrace
	if err := msg.UnmarshalPayload(&rec); err != nil {
		logger.Warn(ctx, "failed to unmarshal trace payload", "message_id", xmsg.ID, "error", err.Error())
		return nil, false
	}
	return &rec, true
}
