package messaging

import (
	"context"
	"fmt"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/service"
)

// TraceSink 把终态追踪记录写入 Redis Stream
type TraceSink struct {
	producer *Producer
	stream   Stream
}

// NewTraceSink 创建追踪投递器，stream 为空时使用 StreamLLMTrace
func NewTraceSink(producer *Producer, stream Stream) *TraceSink {
	if stream == "" {
		stream = StreamLLMTrace
	}
	return &TraceSink{producer: producer, stream: stream}
}

// Publish 投递一条追踪记录
func (s *TraceSink) Publish(ctx context.Context, rec *entity.LLMTrace) error {
	if rec == nil {
		return nil
	}
	msg, err := NewMessage(rec.ID, MessageTypeLLMTrace, rec.CorrelationID, rec)
	if err != nil {
		return fmt.Errorf("failed to build trace message: %w", err)
	}
	msg.SetMetadata("vendor", rec.Vendor)
	msg.SetMetadata("model", rec.Model)
	msg.SetMetadata("state", string(rec.State))

	_, err = s.producer.Publish(ctx, s.stream, msg)
	return err
}

var _ service.TraceSink = (*TraceSink)(nil)
