// Package ordering 计算章节与场景的展示顺序。
//
// 存储中的 order 字段来自不同编辑器，可能从 0 或负数开始、也可能不连续；
// 这里统一换算成 1 起始的序号。结果按请求计算，不缓存。
package ordering

import (
	"sort"
	"strconv"

	"z-novel-context-api/internal/domain/entity"
)

// UnknownOrder 未知章节的序号
const UnknownOrder = -1

// OrderMap 章节 ID -> 规范化序号
type OrderMap map[string]int

// ChapterRef 扁平化后的章节引用
type ChapterRef struct {
	ActID   string
	Chapter entity.ChapterNode
}

// FlattenChapters 按幕的存储顺序展开章节，保留首次出现顺序，重复 ID 只保留第一次
func FlattenChapters(structure entity.NovelStructure) []ChapterRef {
	seen := make(map[string]struct{})
	refs := make([]ChapterRef, 0, structure.ChapterCount())
	for _, act := range structure.Acts {
		for _, ch := range act.Chapters {
			if ch.ID == "" {
				continue
			}
			if _, ok := seen[ch.ID]; ok {
				continue
			}
			seen[ch.ID] = struct{}{}
			refs = append(refs, ChapterRef{ActID: act.ID, Chapter: ch})
		}
	}
	return refs
}

// BuildOrderMap 计算章节序号映射。
// 取原始 order 的最小值 min（空值按 1），min <= 0 时整体偏移 1-min。
// 偏移后若不是 1..n 的排列（稀疏或重复），改用首次出现的位置编号。
func BuildOrderMap(structure entity.NovelStructure) OrderMap {
	refs := FlattenChapters(structure)
	ids := make([]string, len(refs))
	raw := make([]int, len(refs))
	for i, ref := range refs {
		ids[i] = ref.Chapter.ID
		raw[i] = rawOrder(ref.Chapter.Order)
	}
	return normalize(ids, raw)
}

// BuildActOrderMap 以同样规则计算幕的序号
func BuildActOrderMap(structure entity.NovelStructure) OrderMap {
	raw := make([]int, 0, len(structure.Acts))
	ids := make([]string, 0, len(structure.Acts))
	seen := make(map[string]struct{})
	for _, act := range structure.Acts {
		if act.ID == "" {
			continue
		}
		if _, ok := seen[act.ID]; ok {
			continue
		}
		seen[act.ID] = struct{}{}
		ids = append(ids, act.ID)
		raw = append(raw, rawOrder(act.Order))
	}

	return normalize(ids, raw)
}

func normalize(ids []string, raw []int) OrderMap {
	offset := offsetFor(raw)
	result := make(OrderMap, len(ids))
	for i, id := range ids {
		result[id] = raw[i] + offset
	}
	if isPermutation(result) {
		return result
	}
	for i, id := range ids {
		result[id] = i + 1
	}
	return result
}

func isPermutation(m OrderMap) bool {
	seen := make([]bool, len(m)+1)
	for _, v := range m {
		if v < 1 || v > len(m) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func rawOrder(order *int) int {
	if order == nil {
		return 1
	}
	return *order
}

func offsetFor(raw []int) int {
	if len(raw) == 0 {
		return 0
	}
	min := raw[0]
	for _, v := range raw[1:] {
		if v < min {
			min = v
		}
	}
	if min <= 0 {
		return 1 - min
	}
	return 0
}

// ChapterOrder 返回章节序号，未知章节返回 UnknownOrder
func ChapterOrder(m OrderMap, chapterID string) int {
	if v, ok := m[chapterID]; ok {
		return v
	}
	return UnknownOrder
}

// SortScenesBySequence 按 sequence 升序稳定排序，空值排在最后。
// 返回新切片，不修改入参。
func SortScenesBySequence(scenes []*entity.Scene) []*entity.Scene {
	out := make([]*entity.Scene, len(scenes))
	copy(out, scenes)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Sequence, out[j].Sequence
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

// SceneOrderTag 场景序号标签 "<章节序号>-<章内序号>"，仅用于展示
func SceneOrderTag(chapterOrder, sceneIndex int) string {
	return strconv.Itoa(chapterOrder) + "-" + strconv.Itoa(sceneIndex)
}

// IndexOf 返回章节在扁平序列中的位置，不存在返回 -1
func IndexOf(refs []ChapterRef, chapterID string) int {
	for i, ref := range refs {
		if ref.Chapter.ID == chapterID {
			return i
		}
	}
	return -1
}
