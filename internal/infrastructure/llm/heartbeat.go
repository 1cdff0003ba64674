package llm

import (
	"context"
	"sync"
	"time"
)

// HeartbeatSentinel 心跳片段的保留内容，消费方拼接正文时必须过滤
const HeartbeatSentinel = "\x00heartbeat\x00"

// HeartbeatChunk 构造一个心跳片段
func HeartbeatChunk() StreamChunk {
	return StreamChunk{Delta: HeartbeatSentinel, Heartbeat: true}
}

// IsHeartbeat 判断片段是否为心跳
func IsHeartbeat(c StreamChunk) bool {
	return c.Heartbeat || c.Delta == HeartbeatSentinel
}

// MergeHeartbeat 把定时心跳合并进正文流。
// 正文流进入终态（Done、Err 或通道关闭）时关闭一次性的 stop 信号，心跳随之结束；
// ctx 结束时两路都退出。interval <= 0 时原样返回正文流。
func MergeHeartbeat(ctx context.Context, content <-chan StreamChunk, interval time.Duration) <-chan StreamChunk {
	if interval <= 0 {
		return content
	}

	out := make(chan StreamChunk)
	stop := make(chan struct{})
	var once sync.Once
	halt := func() { once.Do(func() { close(stop) }) }

	beats := heartbeats(ctx, interval, stop)

	go func() {
		defer close(out)
		defer halt()

		for {
			select {
			case c, ok := <-content:
				if !ok {
					return
				}
				if c.Done || c.Err != nil {
					halt()
					beats = nil
				}
				if !sendChunk(ctx, out, c) {
					return
				}
			case b := <-beats:
				if !sendChunk(ctx, out, b) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func heartbeats(ctx context.Context, interval time.Duration, stop <-chan struct{}) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case ch <- HeartbeatChunk():
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
