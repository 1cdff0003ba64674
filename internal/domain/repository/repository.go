// Package repository 定义数据访问层接口
//
// 所有查询接口约定：实体不存在时返回 (nil, nil) 或空切片，而不是 not found 错误；
// 只有存储层故障才返回 error。
package repository

// Lookups 内容组装依赖的只读仓储集合
type Lookups struct {
	Novels   NovelRepository
	Scenes   SceneRepository
	Settings SettingRepository
	Snippets SnippetRepository
}
