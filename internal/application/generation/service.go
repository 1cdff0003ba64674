// Package generation 串联上下文组装、提示词渲染与模型调用
package generation

import (
	"context"
	"strings"

	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/internal/infrastructure/llm"
	apperrors "z-novel-context-api/pkg/errors"
	"z-novel-context-api/pkg/logger"
)

// ProviderSource 按名称或临时身份取得 Provider
type ProviderSource interface {
	Get(ctx context.Context, name string) (llm.Provider, error)
	Build(ctx context.Context, name string, id llm.Identity) (llm.Provider, error)
	DefaultName() string
}

// Input 一次生成请求
type Input struct {
	Task Task
	// Provider 配置中的 Provider 名称，空则使用默认
	Provider string
	// Identity 请求自带的凭证，非空时临时构造 Provider
	Identity    *llm.Identity
	Model       string
	Temperature *float64
	MaxTokens   int
	TargetWords int

	Context          contextprovider.Request
	ContextRefs      []string
	ContextMaxTokens int

	// Instruction 用户指令，可包含 {{kind:id}} 内容占位符
	Instruction string
	// History chat 任务的历史消息
	History []llm.Message

	CorrelationID string
	Metadata      map[string]string
}

// Prepared 渲染完成、尚未发送的请求
type Prepared struct {
	Request  *llm.ChatRequest
	Assembly *contextprovider.AssemblyResult
}

// Output 单次生成结果
type Output struct {
	Content      string
	FinishReason string
	Usage        *llm.Usage
	Vendor       string
	Model        string
	Assembly     *contextprovider.AssemblyResult
}

// defaultRefs 未指定上下文时各任务使用的默认选择
var defaultRefs = map[Task][]string{
	TaskContinueWriting: {
		string(contextprovider.KindNovelBasicInfo),
		string(contextprovider.KindRecentChaptersSummary),
		string(contextprovider.KindCurrentChapterContent),
	},
	TaskSummarizeScene: {string(contextprovider.KindCurrentSceneContent)},
	TaskExpandOutline: {
		string(contextprovider.KindNovelBasicInfo),
		string(contextprovider.KindPreviousChaptersSummary),
	},
}

// Service 生成服务
type Service struct {
	assembler   *contextprovider.Assembler
	substitutor *contextprovider.Substitutor
	prompts     *PromptRegistry
	providers   ProviderSource
}

// NewService 创建生成服务
func NewService(assembler *contextprovider.Assembler, substitutor *contextprovider.Substitutor, prompts *PromptRegistry, providers ProviderSource) *Service {
	if prompts == nil {
		prompts = NewPromptRegistry()
	}
	return &Service{
		assembler:   assembler,
		substitutor: substitutor,
		prompts:     prompts,
		providers:   providers,
	}
}

// Prepare 组装上下文并渲染提示词
func (s *Service) Prepare(ctx context.Context, in *Input) (*Prepared, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	refs := in.ContextRefs
	if len(refs) == 0 {
		refs = defaultRefs[in.Task]
	}
	assembly := s.assembler.Assemble(ctx, &contextprovider.AssemblyRequest{
		Request:   in.Context,
		Refs:      contextprovider.ParseRefs(refs),
		MaxTokens: in.ContextMaxTokens,
	})

	// 占位符先于模板渲染解析，替换结果不会再被当作模板
	instruction := s.substitutor.Resolve(ctx, strings.TrimSpace(in.Instruction), contextprovider.SubstitutionRequest{
		UserID: in.Context.UserID,
		Params: in.Context.Params(""),
	})

	vars := map[string]any{
		varSelectedContext: assembly.Markup,
		varInstruction:     instruction,
		varTargetWords:     in.TargetWords,
	}
	if in.Task == TaskChat {
		vars[varHistory] = toSchemaMessages(in.History)
	}
	msgs, err := s.prompts.Render(ctx, in.Task, vars)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTemplateNotFound, "prompt render failed")
	}

	metadata := make(map[string]string, len(in.Metadata)+2)
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["task"] = string(in.Task)
	if in.Context.NovelID != "" {
		metadata["novel_id"] = in.Context.NovelID
	}

	return &Prepared{
		Request: &llm.ChatRequest{
			Model:       strings.TrimSpace(in.Model),
			Messages:    msgs,
			Temperature: in.Temperature,
			MaxTokens:   in.MaxTokens,
			Metadata:    metadata,
		},
		Assembly: assembly,
	}, nil
}

// Generate 单次生成
func (s *Service) Generate(ctx context.Context, in *Input) (*Output, error) {
	ctx, p, prepared, err := s.begin(ctx, in)
	if err != nil {
		return nil, err
	}

	resp, err := p.Generate(ctx, prepared.Request)
	if err != nil {
		logger.Warn(ctx, "generation failed", "task", string(in.Task), "vendor", p.Name(), "error", err.Error())
		return nil, ToAppError(err)
	}

	out := &Output{
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		Vendor:       p.Name(),
		Model:        resp.Model,
		Assembly:     prepared.Assembly,
	}
	if out.Model == "" {
		out.Model = p.Model()
	}
	return out, nil
}

// Stream 流式生成；通道中可能夹带心跳片段，调用方用 llm.IsHeartbeat 过滤
func (s *Service) Stream(ctx context.Context, in *Input) (<-chan llm.StreamChunk, *Prepared, error) {
	ctx, p, prepared, err := s.begin(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	ch, err := p.Stream(ctx, prepared.Request)
	if err != nil {
		logger.Warn(ctx, "generation stream failed", "task", string(in.Task), "vendor", p.Name(), "error", err.Error())
		return nil, nil, ToAppError(err)
	}
	return ch, prepared, nil
}

// EstimateCost 预估本次请求的费用，不发起调用
func (s *Service) EstimateCost(ctx context.Context, in *Input) (llm.CostEstimate, *Prepared, error) {
	ctx, p, prepared, err := s.begin(ctx, in)
	if err != nil {
		return llm.CostEstimate{}, nil, err
	}
	est, err := p.EstimateCost(prepared.Request)
	if err != nil {
		return llm.CostEstimate{}, nil, ToAppError(err)
	}
	logger.Debug(ctx, "generation cost estimated", "task", string(in.Task), "cost", est.Cost)
	return est, prepared, nil
}

// begin 写入追踪上下文、解析 Provider 并渲染请求
func (s *Service) begin(ctx context.Context, in *Input) (context.Context, llm.Provider, *Prepared, error) {
	if err := validate(in); err != nil {
		return ctx, nil, nil, err
	}

	name := strings.TrimSpace(in.Provider)
	if name == "" {
		name = s.providers.DefaultName()
	}
	ctx = service.WithWorkflowProvider(ctx, string(in.Task), name)
	ctx = service.WithDocument(ctx, in.Context.NovelID, in.Context.CurrentSceneID)
	ctx = service.WithCorrelation(ctx, in.CorrelationID)
	if in.Context.NovelID != "" {
		ctx = logger.WithContext(ctx, logger.NovelIDKey, in.Context.NovelID)
	}

	p, err := s.resolve(ctx, name, in.Identity)
	if err != nil {
		return ctx, nil, nil, ToAppError(err)
	}

	prepared, err := s.Prepare(ctx, in)
	if err != nil {
		return ctx, nil, nil, err
	}
	return ctx, p, prepared, nil
}

func (s *Service) resolve(ctx context.Context, name string, id *llm.Identity) (llm.Provider, error) {
	if id != nil && (id.APIKey != "" || id.Vendor != "" || id.BaseURL != "" || id.ProxyHost != "") {
		return s.providers.Build(ctx, name, *id)
	}
	return s.providers.Get(ctx, name)
}

func validate(in *Input) error {
	if in == nil {
		return apperrors.New(apperrors.CodeInvalidParam, "input is nil")
	}
	if !in.Task.Valid() {
		return apperrors.New(apperrors.CodeInvalidParam, "unknown task").WithDetail(string(in.Task))
	}
	switch in.Task {
	case TaskSummarizeScene:
		if in.Context.CurrentSceneID == "" && len(in.ContextRefs) == 0 {
			return apperrors.New(apperrors.CodeInvalidParam, "current_scene_id is required")
		}
	default:
		if strings.TrimSpace(in.Instruction) == "" {
			return apperrors.New(apperrors.CodeInvalidParam, "instruction is required")
		}
	}
	if in.MaxTokens < 0 || in.TargetWords < 0 || in.ContextMaxTokens < 0 {
		return apperrors.New(apperrors.CodeInvalidParam, "token limits must not be negative")
	}
	return nil
}
