// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindNovelID 从 URI 绑定小说 ID
func BindNovelID(c *gin.Context) string {
	return c.Param("nid")
}

// BindProviderName 从 URI 绑定 Provider 名称
func BindProviderName(c *gin.Context) string {
	return c.Param("name")
}

// BindLimit 从查询参数绑定条数上限
func BindLimit(c *gin.Context, defaultVal int) int {
	return parseIntWithDefault(c.Query("limit"), defaultVal)
}
