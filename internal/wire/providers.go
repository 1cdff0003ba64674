// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/config"
	"z-novel-context-api/internal/domain/repository"
	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/internal/infrastructure/llm"
	"z-novel-context-api/internal/infrastructure/messaging"
	"z-novel-context-api/internal/infrastructure/persistence/postgres"
	"z-novel-context-api/internal/infrastructure/persistence/redis"
	"z-novel-context-api/internal/interfaces/http/handler"
	"z-novel-context-api/internal/interfaces/http/middleware"
	"z-novel-context-api/internal/interfaces/http/router"
	"z-novel-context-api/internal/observability/llmtrace"
	"z-novel-context-api/pkg/logger"
)

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewNovelRepository,
	postgres.NewSceneRepository,
	postgres.NewSettingRepository,
	postgres.NewSnippetRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.NovelRepository), new(*postgres.NovelRepository)),
	wire.Bind(new(repository.SceneRepository), new(*postgres.SceneRepository)),
	wire.Bind(new(repository.SettingRepository), new(*postgres.SettingRepository)),
	wire.Bind(new(repository.SnippetRepository), new(*postgres.SnippetRepository)),
	wire.Struct(new(repository.Lookups), "*"),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideTraceSink,
	ProvideTraceReader,
)

// AssemblySet 上下文组装提供者集合
var AssemblySet = wire.NewSet(
	ProvideContextRegistry,
	ProvideAssembler,
	contextprovider.NewSubstitutor,
)

// GenerationSet 模型调用与生成服务提供者集合
var GenerationSet = wire.NewSet(
	ProvideLLMFactory,
	generation.NewPromptRegistry,
	generation.NewService,
	wire.Bind(new(generation.ProviderSource), new(*llm.Factory)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewContextHandler,
	handler.NewGenerationHandler,
	handler.NewProviderHandler,
	handler.NewTraceHandler,
	wire.Bind(new(handler.ContextAssembler), new(*contextprovider.Assembler)),
	wire.Bind(new(handler.Generator), new(*generation.Service)),
	wire.Bind(new(handler.ProviderCatalog), new(*llm.Factory)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.TraceStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), maxLen)
}

func traceStream(cfg *config.Config) messaging.Stream {
	if cfg.Messaging.TraceStream.Name == "" {
		return messaging.StreamLLMTrace
	}
	return messaging.Stream(cfg.Messaging.TraceStream.Name)
}

// ProvideTraceSink 提供调用追踪出口；事件流关闭时只写日志
func ProvideTraceSink(ctx context.Context, cfg *config.Config, producer *messaging.Producer) service.TraceSink {
	if !cfg.Messaging.TraceStream.Enabled {
		logger.Info(ctx, "llm trace stream disabled, traces are logged only")
		return llmtrace.LogSink{}
	}
	return llmtrace.MultiSink{
		llmtrace.LogSink{},
		messaging.NewTraceSink(producer, traceStream(cfg)),
	}
}

// ProvideTraceReader 提供追踪查询；事件流关闭时返回 nil
func ProvideTraceReader(cfg *config.Config, redisClient *redis.Client) handler.TraceLister {
	if !cfg.Messaging.TraceStream.Enabled {
		return nil
	}
	return messaging.NewTraceReader(redisClient.Redis(), traceStream(cfg))
}

// ProvideContextRegistry 提供内容提供者注册表
func ProvideContextRegistry(cfg *config.Config, lookups repository.Lookups) *contextprovider.Registry {
	return contextprovider.NewDefaultRegistry(lookups, contextprovider.Config{
		RecentChapters:   cfg.Assembly.RecentChapters,
		FetchConcurrency: cfg.Assembly.FetchConcurrency,
	})
}

// ProvideAssembler 提供上下文组装器
func ProvideAssembler(cfg *config.Config, registry *contextprovider.Registry) *contextprovider.Assembler {
	return contextprovider.NewAssembler(registry, contextprovider.AssemblerConfig{
		MaxTokens:   cfg.Assembly.MaxTokens,
		Concurrency: cfg.Assembly.FetchConcurrency,
		IncludeIDs:  cfg.Assembly.IncludeIDs,
	})
}

// ProvideLLMFactory 提供带调用追踪的 Provider 工厂
func ProvideLLMFactory(cfg *config.Config, sink service.TraceSink) *llm.Factory {
	return llm.NewFactory(cfg, llmtrace.Decorator(sink, llmtrace.WithHeartbeat(cfg.LLM.Stream.HeartbeatInterval)))
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, factory *llm.Factory) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, factory, cfg.App.Version)
}
