// Package contextprovider 按内容类型抓取、排序并格式化小说上下文片段。
//
// 组装路径全程 fail-soft：任何查询失败或实体缺失都只得到空片段，
// 不会中断整个组装请求。片段归调用方所有，不做跨请求缓存。
package contextprovider

import (
	"context"
	"strings"
)

// Provider 一种内容类型的提供者
type Provider interface {
	// Kind 负责的内容类型
	Kind() Kind

	// Fetch 抓取并格式化片段；失败时返回带类型与 ID 的空片段，不返回错误
	Fetch(ctx context.Context, contextID string, req *Request) Fragment

	// FetchForSubstitution 返回用于占位符替换的纯文本
	FetchForSubstitution(ctx context.Context, userID, novelID, contentID string, params Params) string

	// EstimateLength 只根据原始富文本字段估算长度，不生成完整标签
	EstimateLength(ctx context.Context, params Params) int
}

// Fragment 格式化后的内容片段
type Fragment struct {
	Markup    string `json:"markup"`
	Kind      Kind   `json:"kind"`
	ContextID string `json:"context_id"`
}

// IsEmpty 片段是否没有内容
func (f Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.Markup) == ""
}

func emptyFragment(kind Kind, contextID string) Fragment {
	return Fragment{Kind: kind, ContextID: contextID}
}

// Request 一次组装请求的上下文
type Request struct {
	UserID           string `json:"user_id,omitempty"`
	NovelID          string `json:"novel_id"`
	CurrentChapterID string `json:"current_chapter_id,omitempty"`
	CurrentSceneID   string `json:"current_scene_id,omitempty"`
	RecentChapters   int    `json:"recent_chapters,omitempty"`
	IncludeIDs       bool   `json:"include_ids,omitempty"`
}

// Params 返回针对某个内容 ID 的参数
func (r *Request) Params(contentID string) Params {
	if r == nil {
		return Params{ContentID: contentID}
	}
	return Params{
		NovelID:          r.NovelID,
		ContentID:        contentID,
		CurrentChapterID: r.CurrentChapterID,
		CurrentSceneID:   r.CurrentSceneID,
		RecentChapters:   r.RecentChapters,
	}
}

// Params 占位符替换与长度估算参数
type Params struct {
	NovelID          string
	ContentID        string
	CurrentChapterID string
	CurrentSceneID   string
	RecentChapters   int
}

// Config 提供者配置
type Config struct {
	// RecentChapters 最近章节窗口的默认大小
	RecentChapters int
	// FetchConcurrency 单次请求内并发查询上限
	FetchConcurrency int
}

const (
	defaultRecentChapters   = 5
	defaultFetchConcurrency = 8
)

func (c Config) withDefaults() Config {
	if c.RecentChapters <= 0 {
		c.RecentChapters = defaultRecentChapters
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = defaultFetchConcurrency
	}
	return c
}
