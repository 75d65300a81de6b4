package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resume-engine-go/internal/config"
	"resume-engine-go/internal/constants"
	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/parser"
	"resume-engine-go/internal/storage"
	"resume-engine-go/internal/tracing"
	"resume-engine-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer = otel.Tracer("processor")

// Components 流水线的业务组件集合
type Components struct {
	// 核心组件接口
	TextExtractor       TextExtractor       // 文本提取
	SkillExtractor      SkillExtractor      // 技能提取
	ExperienceExtractor ExperienceExtractor // 工作经历提取
	EducationExtractor  EducationExtractor  // 教育经历提取
	QualityAssessor     QualityAssessor     // 质量评估
	StageObserver       StageObserver       // 阶段观察者，可为空

	// 存储层依赖，可为空（纯文本解析场景不需要）
	Storage *storage.Storage
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	ParserVersion   string           // 解析器版本，写入元数据
	StageTimeout    time.Duration    // 单阶段超时
	PipelineTimeout time.Duration    // 整条流水线超时
	EntityWorkers   int              // 实体提取并发数
	TopSkillCount   int              // 统计中TopSkills数量
	Logger          zerolog.Logger   // 日志记录器
	Clock           func() time.Time // 时钟函数，测试用
}

// DefaultSettings 从配置派生设置项
func DefaultSettings(cfg *config.Config) *Settings {
	set := &Settings{
		ParserVersion:   constants.DefaultParserVersion,
		StageTimeout:    30 * time.Second,
		PipelineTimeout: 2 * time.Minute,
		EntityWorkers:   3,
		TopSkillCount:   10,
		Logger:          logger.With("component", "pipeline"),
		Clock:           time.Now,
	}
	if cfg == nil {
		return set
	}
	if cfg.ActiveParserVersion != "" {
		set.ParserVersion = cfg.ActiveParserVersion
	}
	set.StageTimeout = config.GetDuration(cfg.Parser.StageTimeout, set.StageTimeout)
	set.PipelineTimeout = config.GetDuration(cfg.Parser.PipelineTimeout, set.PipelineTimeout)
	if cfg.Skills.TopSkillCount > 0 {
		set.TopSkillCount = cfg.Skills.TopSkillCount
	}
	return set
}

// DefaultComponents 按配置构建全套解析组件，opts可逐个覆盖默认实现
// storage可为空，此时流水线只做解析不做持久化。
func DefaultComponents(ctx context.Context, cfg *config.Config, st *storage.Storage, opts ...ComponentOpt) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	taxonomy := parser.NewTaxonomy(cfg.Skills.ExtraVocabulary, cfg.Skills.Aliases)

	textExtractor, err := parser.NewTextExtractor(ctx,
		parser.WithMinTextLength(cfg.Parser.MinTextLength),
		parser.WithMinPrintableRatio(cfg.Parser.MinPrintableRatio),
	)
	if err != nil {
		return nil, fmt.Errorf("创建文本提取器失败: %w", err)
	}

	skillExtractor := parser.NewSkillExtractor(taxonomy,
		parser.WithAgreementBonus(cfg.Skills.AgreementBonus),
	)

	experienceExtractor := parser.NewExperienceExtractor(taxonomy)

	educationExtractor := parser.NewEducationExtractor(
		parser.WithGPAScale(cfg.Education.GPAScale),
	)

	var assessorOpts []parser.QualityAssessorOption
	if len(cfg.Quality.Weights) > 0 {
		assessorOpts = append(assessorOpts, parser.WithCriteriaWeights(cfg.Quality.Weights))
	}
	if cfg.Quality.SuggestionThreshold > 0 {
		assessorOpts = append(assessorOpts, parser.WithSuggestionThreshold(cfg.Quality.SuggestionThreshold))
	}
	qualityAssessor := parser.NewQualityAssessor(assessorOpts...)

	comp := &Components{
		TextExtractor:       textExtractor,
		SkillExtractor:      skillExtractor,
		ExperienceExtractor: experienceExtractor,
		EducationExtractor:  educationExtractor,
		QualityAssessor:     qualityAssessor,
		Storage:             st,
	}
	for _, opt := range opts {
		opt(comp)
	}
	return comp, nil
}

// ResumePipeline 简历解析流水线编排器
// 驱动 文本提取 → 实体提取 → 质量评估 的状态机，
// 组件全部通过接口注入，编排器自身不含解析逻辑。
type ResumePipeline struct {
	components Components
	settings   Settings
}

// NewResumePipeline 创建流水线实例
func NewResumePipeline(comp *Components, set *Settings, opts ...SettingOpt) (*ResumePipeline, error) {
	if comp == nil {
		return nil, fmt.Errorf("%w: components为空", ErrMissingComponent)
	}
	if set == nil {
		set = DefaultSettings(nil)
	}

	for _, opt := range opts {
		opt(set)
	}

	// 补全缺省设置
	if set.ParserVersion == "" {
		set.ParserVersion = constants.DefaultParserVersion
	}
	if set.StageTimeout <= 0 {
		set.StageTimeout = 30 * time.Second
	}
	if set.PipelineTimeout <= 0 {
		set.PipelineTimeout = 2 * time.Minute
	}
	if set.EntityWorkers <= 0 {
		set.EntityWorkers = 3
	}
	if set.TopSkillCount <= 0 {
		set.TopSkillCount = 10
	}
	if set.Clock == nil {
		set.Clock = time.Now
	}

	// 验证必要组件
	switch {
	case comp.TextExtractor == nil:
		return nil, fmt.Errorf("%w: TextExtractor", ErrMissingComponent)
	case comp.SkillExtractor == nil:
		return nil, fmt.Errorf("%w: SkillExtractor", ErrMissingComponent)
	case comp.ExperienceExtractor == nil:
		return nil, fmt.Errorf("%w: ExperienceExtractor", ErrMissingComponent)
	case comp.EducationExtractor == nil:
		return nil, fmt.Errorf("%w: EducationExtractor", ErrMissingComponent)
	case comp.QualityAssessor == nil:
		return nil, fmt.Errorf("%w: QualityAssessor", ErrMissingComponent)
	}

	return &ResumePipeline{
		components: *comp,
		settings:   *set,
	}, nil
}

// setStage 迁移流水线阶段并通知观察者
func (p *ResumePipeline) setStage(ctx context.Context, submissionUUID string, stage types.PipelineStage) {
	p.settings.Logger.Debug().
		Str("submission_uuid", submissionUUID).
		Str("stage", string(stage)).
		Msg("流水线阶段迁移")
	if p.components.StageObserver != nil {
		// 阶段通知要在流水线超时后依然可达，脱离父ctx的取消链
		p.components.StageObserver.OnStageChange(context.WithoutCancel(ctx), submissionUUID, stage)
	}
}

// Parse 执行完整的解析流水线
// 文本提取失败是致命错误；单个实体提取器失败降级为EntityNote，
// 结果标记Partial后继续走完质量评估。
func (p *ResumePipeline) Parse(ctx context.Context, doc *types.RawDocument, submissionUUID string) (*types.ParsedResume, error) {
	ctx, span := pipelineTracer.Start(ctx, "ResumePipeline.Parse",
		trace.WithAttributes(
			attribute.String("submission_uuid", submissionUUID),
			attribute.String("document.format", string(doc.Format)),
		))
	defer span.End()

	ctx, cancel := context.WithTimeoutCause(ctx, p.settings.PipelineTimeout, ErrPipelineTimeout)
	defer cancel()

	resume := &types.ParsedResume{}
	var timings []types.StageTiming

	// ---- 阶段1: 文本提取 ----
	p.setStage(ctx, submissionUUID, types.StageExtractingText)
	stageStart := p.settings.Clock()

	text, err := p.extractText(ctx, doc)
	timings = append(timings, types.StageTiming{
		Stage:      types.StageExtractingText,
		DurationMS: p.settings.Clock().Sub(stageStart).Milliseconds(),
	})
	if err != nil {
		p.setStage(ctx, submissionUUID, types.StageFailed)
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, NewPipelineError(types.StageExtractingText, submissionUUID, err, "")
	}
	resume.Text = text
	resume.Contact = parser.ExtractContact(text)

	// ---- 阶段2: 实体提取 ----
	p.setStage(ctx, submissionUUID, types.StageExtractingEntities)
	stageStart = p.settings.Clock()
	p.extractEntities(ctx, resume)
	timings = append(timings, types.StageTiming{
		Stage:      types.StageExtractingEntities,
		DurationMS: p.settings.Clock().Sub(stageStart).Milliseconds(),
	})

	if err := ctx.Err(); err != nil {
		p.setStage(ctx, submissionUUID, types.StageFailed)
		tracing.RecordError(span, context.Cause(ctx), tracing.ErrorTypeTimeout)
		return nil, NewPipelineError(types.StageExtractingEntities, submissionUUID, context.Cause(ctx), "")
	}

	// ---- 阶段3: 质量评估 ----
	p.setStage(ctx, submissionUUID, types.StageAssessingQuality)
	stageStart = p.settings.Clock()
	resume.Quality = p.components.QualityAssessor.Assess(ctx, resume)
	timings = append(timings, types.StageTiming{
		Stage:      types.StageAssessingQuality,
		DurationMS: p.settings.Clock().Sub(stageStart).Milliseconds(),
	})

	// ---- 汇总 ----
	resume.Stats = BuildStatistics(resume, p.settings.TopSkillCount)
	resume.Meta = types.AnalysisMeta{
		ExtractionMethod: text.Method,
		ParserVersion:    p.settings.ParserVersion,
		ParsedAt:         p.settings.Clock(),
		Timings:          timings,
		Partial:          len(resume.Notes) > 0,
	}

	p.setStage(ctx, submissionUUID, types.StageDone)
	span.SetAttributes(
		attribute.Int("skills.count", len(resume.Skills)),
		attribute.Int("experience.count", len(resume.Experience)),
		attribute.Int("education.count", len(resume.Education)),
		attribute.Bool("partial", resume.Meta.Partial),
	)
	if resume.Quality != nil {
		span.SetAttributes(attribute.Float64("quality.overall_score", resume.Quality.OverallScore))
	}
	span.SetStatus(codes.Ok, "")

	return resume, nil
}

// extractText 带单阶段超时的文本提取
func (p *ResumePipeline) extractText(ctx context.Context, doc *types.RawDocument) (*types.NormalizedText, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.settings.StageTimeout)
	defer cancel()
	return p.components.TextExtractor.Extract(stageCtx, doc)
}

// extractEntities 并发运行三个实体提取器
// 提取器失败降级为EntityNote；技能提取器允许带着错误返回部分结果。
func (p *ResumePipeline) extractEntities(ctx context.Context, resume *types.ParsedResume) {
	stageCtx, cancel := context.WithTimeout(ctx, p.settings.StageTimeout)
	defer cancel()

	sem := make(chan struct{}, p.settings.EntityWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	addNote := func(extractor string, err error) {
		mu.Lock()
		resume.Notes = append(resume.Notes, types.EntityNote{
			Extractor: extractor,
			Message:   err.Error(),
		})
		mu.Unlock()
		p.settings.Logger.Warn().
			Str("extractor", extractor).
			Err(err).
			Msg("实体提取器失败，记录为非致命错误")
	}

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := fn(); err != nil {
				addNote(name, err)
			}
		}()
	}

	run("skills", func() error {
		skills, err := p.components.SkillExtractor.Extract(stageCtx, resume.Text)
		// 部分失败时仍然采用已提取到的技能
		mu.Lock()
		resume.Skills = skills
		mu.Unlock()
		return err
	})

	run("experience", func() error {
		entries, err := p.components.ExperienceExtractor.Extract(stageCtx, resume.Text)
		if err != nil {
			return err
		}
		mu.Lock()
		resume.Experience = entries
		mu.Unlock()
		return nil
	})

	run("education", func() error {
		entries, err := p.components.EducationExtractor.Extract(stageCtx, resume.Text)
		if err != nil {
			return err
		}
		mu.Lock()
		resume.Education = entries
		mu.Unlock()
		return nil
	})

	wg.Wait()
}

// ParseText 解析纯文本简历，跳过文档格式处理
func (p *ResumePipeline) ParseText(ctx context.Context, text string, submissionUUID string) (*types.ParsedResume, error) {
	doc := &types.RawDocument{
		Data:   []byte(text),
		Format: types.FormatPlainText,
	}
	return p.Parse(ctx, doc, submissionUUID)
}

// ExtractSkillsOnly 只做文本规范化和技能提取，供轻量接口使用
func (p *ResumePipeline) ExtractSkillsOnly(ctx context.Context, text string) ([]types.ExtractedSkill, error) {
	ctx, span := pipelineTracer.Start(ctx, "ResumePipeline.ExtractSkillsOnly")
	defer span.End()

	doc := &types.RawDocument{
		Data:   []byte(text),
		Format: types.FormatPlainText,
	}
	normalized, err := p.extractText(ctx, doc)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, NewPipelineError(types.StageExtractingText, "", err, "")
	}

	skills, err := p.components.SkillExtractor.Extract(ctx, normalized)
	if err != nil && len(skills) == 0 {
		tracing.RecordError(span, err, tracing.ErrorTypePipeline)
		return nil, NewPipelineError(types.StageExtractingEntities, "", err, "")
	}

	span.SetAttributes(attribute.Int("skills.count", len(skills)))
	span.SetStatus(codes.Ok, "")
	return skills, nil
}

// AssessQualityOnly 解析纯文本并只返回质量评估结果
func (p *ResumePipeline) AssessQualityOnly(ctx context.Context, text string) (*types.QualityAssessment, error) {
	resume, err := p.ParseText(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return resume.Quality, nil
}

// ParserVersion 返回当前解析器版本
func (p *ResumePipeline) ParserVersion() string {
	return p.settings.ParserVersion
}

// ComponentStatus 返回启用的文本提取方法和技能候选生成方法
// 组件通过接口注入，只有能自报明细的实现才会出现在结果里。
func (p *ResumePipeline) ComponentStatus() (textMethods, skillGenerators []string) {
	if te, ok := p.components.TextExtractor.(interface{ MethodNames() []string }); ok {
		textMethods = te.MethodNames()
	}
	if se, ok := p.components.SkillExtractor.(interface{ GeneratorNames() []string }); ok {
		skillGenerators = se.GeneratorNames()
	}
	return textMethods, skillGenerators
}
