// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-context-api/internal/infrastructure/persistence/postgres"
	"z-novel-context-api/internal/infrastructure/persistence/redis"
)

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg        HealthChecker
	redis     HealthChecker
	providers ProviderCatalog
	version   string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, providers ProviderCatalog, version string) *HealthHandler {
	h := &HealthHandler{providers: providers, version: version}
	// 避免 nil 指针被包装成非 nil 接口
	if pg != nil {
		h.pg = pg
	}
	if redisClient != nil {
		h.redis = redisClient
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口。Postgres 与 Redis 必需；
// 默认模型 Provider 无法构造时记为 degraded，上下文预览仍可服务。
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"postgres": probe(ctx, h.pg, "postgres"),
		"redis":    probe(ctx, h.redis, "redis"),
	}
	ready := checks["postgres"].Status == "ok" && checks["redis"].Status == "ok"

	if h.providers != nil {
		checks["llm"] = h.probeDefaultProvider(ctx)
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// probe 执行单个依赖检查
func probe(ctx context.Context, checker HealthChecker, name string) *readinessCheck {
	if checker == nil {
		return &readinessCheck{Status: "missing", Error: name + " client not configured"}
	}
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// probeDefaultProvider 只构造默认 Provider，不发起模型请求
func (h *HealthHandler) probeDefaultProvider(ctx context.Context) *readinessCheck {
	name := h.providers.DefaultName()
	if name == "" {
		return &readinessCheck{Status: "disabled"}
	}
	start := time.Now()
	_, err := h.providers.Get(ctx, name)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "degraded"
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
