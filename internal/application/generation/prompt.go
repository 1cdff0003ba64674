package generation

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"z-novel-context-api/internal/infrastructure/llm"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// Task 生成任务，对应一组内置提示词模板
type Task string

const (
	TaskContinueWriting Task = "continue_writing"
	TaskSummarizeScene  Task = "summarize_scene"
	TaskExpandOutline   Task = "expand_outline"
	TaskChat            Task = "chat"
)

// Tasks 全部内置任务
func Tasks() []Task {
	return []Task{TaskContinueWriting, TaskSummarizeScene, TaskExpandOutline, TaskChat}
}

// Valid 是否为内置任务
func (t Task) Valid() bool {
	switch t {
	case TaskContinueWriting, TaskSummarizeScene, TaskExpandOutline, TaskChat:
		return true
	default:
		return false
	}
}

// PromptRegistry 内置提示词模板，首次使用时解析并缓存
type PromptRegistry struct {
	mu    sync.RWMutex
	cache map[Task]einoprompt.ChatTemplate
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		cache: make(map[Task]einoprompt.ChatTemplate),
	}
}

// ChatTemplate 返回任务对应的模板。
// chat 任务的模板在 system 与 user 之间留有 history 占位，用于多轮对话。
func (r *PromptRegistry) ChatTemplate(task Task) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[task]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[task]; ok {
		return tpl, nil
	}

	if !task.Valid() {
		return nil, fmt.Errorf("unknown task: %s", task)
	}
	system, err := readEmbeddedText("templates/" + string(task) + ".system.txt")
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText("templates/" + string(task) + ".user.txt")
	if err != nil {
		return nil, err
	}

	templates := []schema.MessagesTemplate{schema.SystemMessage(system)}
	if task == TaskChat {
		templates = append(templates, schema.MessagesPlaceholder(varHistory, true))
	}
	templates = append(templates, schema.UserMessage(user))

	tpl := einoprompt.FromMessages(schema.GoTemplate, templates...)
	r.cache[task] = tpl
	return tpl, nil
}

const (
	varSelectedContext = "selected_context"
	varInstruction     = "instruction"
	varTargetWords     = "target_words"
	varHistory         = "history"
)

// Render 渲染任务模板为对话消息
func (r *PromptRegistry) Render(ctx context.Context, task Task, vars map[string]any) ([]llm.Message, error) {
	tpl, err := r.ChatTemplate(task)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", task, err)
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, llm.Message{Role: fromSchemaRole(m.Role), Content: strings.TrimSpace(m.Content)})
	}
	return out, nil
}

func fromSchemaRole(role schema.RoleType) llm.Role {
	switch role {
	case schema.System:
		return llm.RoleSystem
	case schema.Assistant:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

func toSchemaMessages(history []llm.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case llm.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case llm.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
