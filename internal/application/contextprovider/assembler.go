package contextprovider

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/pkg/logger"
	"z-novel-context-api/pkg/metrics"
	"z-novel-context-api/pkg/tokenizer"
)

// AssemblerConfig 组装配置
type AssemblerConfig struct {
	// MaxTokens 默认 token 预算，0 表示不限制
	MaxTokens int
	// Concurrency 并发抓取上限
	Concurrency int
	// IncludeIDs 为 true 时所有请求都输出 id 属性
	IncludeIDs bool
}

// Assembler 按 token 预算把选中的上下文组装成 selected_context
type Assembler struct {
	registry    *Registry
	maxTokens   int
	concurrency int
	includeIDs  bool
}

// NewAssembler 创建组装器
func NewAssembler(registry *Registry, cfg AssemblerConfig) *Assembler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultFetchConcurrency
	}
	return &Assembler{
		registry:    registry,
		maxTokens:   cfg.MaxTokens,
		concurrency: cfg.Concurrency,
		includeIDs:  cfg.IncludeIDs,
	}
}

// AssemblyRequest 组装请求
type AssemblyRequest struct {
	Request
	Refs      []ContextRef
	MaxTokens int
}

// AssemblyResult 组装结果；Fragments 保持请求顺序
type AssemblyResult struct {
	Markup    string
	Fragments []Fragment
	Tokens    int
	// Skipped 未知类型或内容为空
	Skipped []ContextRef
	// Truncated 超出预算被丢弃
	Truncated []ContextRef
}

type assemblySlot struct {
	ref      ContextRef
	provider Provider
	estimate int
	selected bool
	fragment Fragment
}

// Assemble 组装上下文。先用长度估算做预算预筛，再并发抓取，最后按实际 token 数截断。
// 不返回错误，失败的片段只会被跳过。
func (a *Assembler) Assemble(ctx context.Context, req *AssemblyRequest) *AssemblyResult {
	result := &AssemblyResult{}
	if req == nil {
		return result
	}
	if a.includeIDs && !req.IncludeIDs {
		cp := *req
		cp.IncludeIDs = true
		req = &cp
	}
	budget := req.MaxTokens
	if budget <= 0 {
		budget = a.maxTokens
	}

	slots := make([]*assemblySlot, 0, len(req.Refs))
	seen := make(map[string]struct{}, len(req.Refs))
	for _, ref := range req.Refs {
		key := ref.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		p, ok := a.registry.Get(ref.Kind)
		if !ok {
			logger.Warn(ctx, "context assembly: unknown kind", "kind", string(ref.Kind))
			result.Skipped = append(result.Skipped, ref)
			continue
		}
		slots = append(slots, &assemblySlot{ref: ref, provider: p})
	}

	if budget > 0 {
		a.estimate(ctx, req, slots)
	}
	used := 0
	for _, s := range slots {
		if budget > 0 && used+tokenizer.FromLength(s.estimate) > budget {
			result.Truncated = append(result.Truncated, s.ref)
			metrics.AssemblyFragments.WithLabelValues(string(s.ref.Kind), "truncated").Inc()
			continue
		}
		used += tokenizer.FromLength(s.estimate)
		s.selected = true
	}

	a.fetch(ctx, req, slots)

	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		if !s.selected {
			continue
		}
		if s.fragment.IsEmpty() {
			result.Skipped = append(result.Skipped, s.ref)
			metrics.AssemblyFragments.WithLabelValues(string(s.ref.Kind), "empty").Inc()
			continue
		}
		tokens := tokenizer.Count(s.fragment.Markup)
		if budget > 0 && result.Tokens+tokens > budget {
			result.Truncated = append(result.Truncated, s.ref)
			metrics.AssemblyFragments.WithLabelValues(string(s.ref.Kind), "truncated").Inc()
			continue
		}
		result.Tokens += tokens
		result.Fragments = append(result.Fragments, s.fragment)
		parts = append(parts, s.fragment.Markup)
		metrics.AssemblyFragments.WithLabelValues(string(s.ref.Kind), "ok").Inc()
	}
	result.Markup = markup.SelectedContext(parts)

	status := "complete"
	if len(result.Truncated) > 0 {
		status = "truncated"
	}
	metrics.AssemblyTotal.WithLabelValues(status).Inc()
	metrics.AssemblyTokens.Observe(float64(result.Tokens))
	logger.Debug(ctx, "context assembled",
		"novel_id", req.NovelID,
		"fragments", len(result.Fragments),
		"tokens", result.Tokens,
		"truncated", len(result.Truncated),
		"skipped", len(result.Skipped),
	)
	return result
}

func (a *Assembler) estimate(ctx context.Context, req *AssemblyRequest, slots []*assemblySlot) {
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for _, s := range slots {
		g.Go(func() error {
			s.estimate = s.provider.EstimateLength(ctx, req.Params(s.ref.ID))
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Assembler) fetch(ctx context.Context, req *AssemblyRequest, slots []*assemblySlot) {
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for _, s := range slots {
		if !s.selected {
			continue
		}
		g.Go(func() error {
			contextID := s.ref.ID
			if contextID == "" {
				contextID = string(s.ref.Kind)
			}
			s.fragment = s.provider.Fetch(ctx, contextID, &req.Request)
			return nil
		})
	}
	_ = g.Wait()
}

// ParseRefs 解析一组 "kind:id" 字符串
func ParseRefs(items []string) []ContextRef {
	refs := make([]ContextRef, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		refs = append(refs, ParseRef(item))
	}
	return refs
}
