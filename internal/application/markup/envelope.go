package markup

import (
	"strings"

	"z-novel-context-api/internal/application/richtext"
)

// Task 用户任务外壳
type Task struct {
	Action       string
	Input        string
	Context      string
	Instructions string
	Parameters   map[string]string
}

// FormatSystem 系统提示外壳
func FormatSystem(prompt string) string {
	return Text("system", prompt)
}

// FormatTask 用户任务外壳；Context 通常是已格式化的 selected_context，原样内嵌
func FormatTask(t Task) string {
	var params string
	if len(t.Parameters) > 0 {
		items := make([]string, 0, len(t.Parameters))
		for _, k := range sortedKeys(t.Parameters) {
			v := strings.TrimSpace(t.Parameters[k])
			if v == "" {
				continue
			}
			items = append(items, openTag("param", attrs(Attr{Key: "name", Value: k}))+Escape(v)+"</param>")
		}
		params = Block("parameters", nil, items...)
	}
	return Block("task", nil,
		Text("action", t.Action),
		Text("input", t.Input),
		Context("context", t.Context),
		Text("instructions", t.Instructions),
		params,
	)
}

// FormatMessage 对话消息
func FormatMessage(role, content string) string {
	v := strings.TrimSpace(content)
	if v == "" {
		return ""
	}
	return Envelope("message", attrs(Attr{Key: "role", Value: role}), Escape(v))
}

func plain(raw string) string {
	return richtext.ToPlainText(raw)
}
