package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeHeartbeatInterleaves(t *testing.T) {
	content := make(chan StreamChunk)
	go func() {
		defer close(content)
		time.Sleep(30 * time.Millisecond)
		content <- StreamChunk{Delta: "h"}
		content <- StreamChunk{Delta: "i"}
		content <- StreamChunk{Done: true, FinishReason: "stop"}
	}()

	chunks := collect(MergeHeartbeat(context.Background(), content, 5*time.Millisecond))

	var text string
	beats := 0
	for _, c := range chunks {
		if IsHeartbeat(c) {
			beats++
			continue
		}
		text += c.Delta
	}
	assert.Equal(t, "hi", text)
	assert.Greater(t, beats, 0)
	assert.True(t, IsHeartbeat(chunks[0]))

	last := chunks[len(chunks)-1]
	assert.True(t, last.Done)
	assert.False(t, IsHeartbeat(last))
}

func TestMergeHeartbeatStopsAfterTerminalChunk(t *testing.T) {
	content := make(chan StreamChunk)
	out := MergeHeartbeat(context.Background(), content, time.Millisecond)

	go func() {
		content <- StreamChunk{Done: true}
		// 终态之后保持通道打开一段时间
		time.Sleep(20 * time.Millisecond)
		close(content)
	}()

	sawDone := false
	for c := range out {
		if c.Done {
			sawDone = true
			continue
		}
		if sawDone {
			assert.False(t, IsHeartbeat(c), "heartbeat after terminal chunk")
		}
	}
	assert.True(t, sawDone)
}

func TestMergeHeartbeatCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	content := make(chan StreamChunk)
	out := MergeHeartbeat(ctx, content, time.Millisecond)

	c := <-out
	require.True(t, IsHeartbeat(c))
	cancel()

	select {
	case _, ok := <-drain(out):
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("merged stream not closed after cancel")
	}
}

func TestMergeHeartbeatDisabled(t *testing.T) {
	content := make(chan StreamChunk)
	assert.Equal(t, (<-chan StreamChunk)(content), MergeHeartbeat(context.Background(), content, 0))
}

// drain 读完 ch 后关闭返回的通道
func drain(ch <-chan StreamChunk) <-chan StreamChunk {
	done := make(chan StreamChunk)
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}
