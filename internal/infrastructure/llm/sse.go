package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"z-novel-context-api/pkg/logger"
)

const (
	maxErrorBody   = 4 << 10
	maxSSELineSize = 1 << 20
)

// readSSE 逐个事件读取 SSE 流；handle 返回 true 表示结束读取
func readSSE(ctx context.Context, body io.Reader, handle func(event, data string) (bool, error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxSSELineSize)

	var event string
	var data []string
	flush := func() (bool, error) {
		if len(data) == 0 {
			event = ""
			return false, nil
		}
		payload := strings.Join(data, "\n")
		name := event
		event, data = "", data[:0]
		return handle(name, payload)
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		switch {
		case line == "":
			done, err := flush()
			if err != nil || done {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err := flush()
	return err
}

// httpError 读取错误响应体并按状态码归类
func httpError(vendor string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return ClassifyHTTPStatus(vendor, resp.StatusCode, strings.TrimSpace(string(body)))
}

// doJSON 发送 JSON 请求，非 2xx 响应归类为厂商错误。
// 响应体无法解析时只记录日志，out 保持零值。
func doJSON(client *http.Client, req *http.Request, vendor string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return classify(vendor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(vendor, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Warn(req.Context(), "malformed vendor response", "vendor", vendor, "error", err.Error())
	}
	return nil
}

// newJSONRequest 构造 JSON 请求；body 为 nil 时不带请求体
func newJSONRequest(ctx context.Context, vendor, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, Permanent(vendor, 0, err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, Permanent(vendor, 0, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
