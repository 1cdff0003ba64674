package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextInjectsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)
	t.Cleanup(func() { Init("info", "json") })

	ctx := WithContext(context.Background(), NovelIDKey, "n1")
	ctx = WithContext(ctx, SceneIDKey, "s1")
	ctx = WithContext(ctx, RequestIDKey, "")

	Error(ctx, "call failed", errors.New("boom"), "vendor", "openai")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "n1", line["novel_id"])
	assert.Equal(t, "s1", line["scene_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "openai", line["vendor"])
	_, hasRequestID := line["request_id"]
	assert.False(t, hasRequestID)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("nope").String())
}
