package processor

import (
	"context"

	"resume-engine-go/internal/parser"
	"resume-engine-go/internal/types"
)

// TextExtractor 文本提取接口
// 把原始文档字节转成规范化文本（章节序列 + 全文）。
type TextExtractor interface {
	Extract(ctx context.Context, doc *types.RawDocument) (*types.NormalizedText, error)
}

// SkillExtractor 技能提取接口
// 允许部分失败：返回的技能切片和错误可以同时非空。
type SkillExtractor interface {
	Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExtractedSkill, error)
}

// ExperienceExtractor 工作经历提取接口
type ExperienceExtractor interface {
	Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExperienceEntry, error)
}

// EducationExtractor 教育经历提取接口
type EducationExtractor interface {
	Extract(ctx context.Context, text *types.NormalizedText) ([]types.EducationEntry, error)
}

// QualityAssessor 质量评估接口
// 评估永不失败，输入再差也给出低分结果。
type QualityAssessor interface {
	Assess(ctx context.Context, resume *types.ParsedResume) *types.QualityAssessment
}

// StageObserver 流水线阶段变更观察者
// 编排器每次状态迁移时同步调用；实现必须快速返回，不得阻塞流水线。
type StageObserver interface {
	OnStageChange(ctx context.Context, submissionUUID string, stage types.PipelineStage)
}

// StageObserverFunc 函数适配器
type StageObserverFunc func(ctx context.Context, submissionUUID string, stage types.PipelineStage)

func (f StageObserverFunc) OnStageChange(ctx context.Context, submissionUUID string, stage types.PipelineStage) {
	f(ctx, submissionUUID, stage)
}

// 编译期确认parser包的具体实现满足这些接口
var (
	_ TextExtractor       = (*parser.TextExtractor)(nil)
	_ SkillExtractor      = (*parser.SkillExtractor)(nil)
	_ ExperienceExtractor = (*parser.ExperienceExtractor)(nil)
	_ EducationExtractor  = (*parser.EducationExtractor)(nil)
	_ QualityAssessor     = (*parser.QualityAssessor)(nil)
)
