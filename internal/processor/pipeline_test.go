package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resume-engine-go/internal/config"
	"resume-engine-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- 测试桩组件 ----

type stubTextExtractor struct {
	text *types.NormalizedText
	err  error
}

func (s *stubTextExtractor) Extract(ctx context.Context, doc *types.RawDocument) (*types.NormalizedText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.text, nil
}

type stubSkillExtractor struct {
	skills []types.ExtractedSkill
	err    error
}

func (s *stubSkillExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExtractedSkill, error) {
	return s.skills, s.err
}

type stubExperienceExtractor struct {
	entries []types.ExperienceEntry
	err     error
}

func (s *stubExperienceExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExperienceEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type stubEducationExtractor struct {
	entries []types.EducationEntry
	err     error
}

func (s *stubEducationExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.EducationEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type stubQualityAssessor struct {
	assessment *types.QualityAssessment
}

func (s *stubQualityAssessor) Assess(ctx context.Context, resume *types.ParsedResume) *types.QualityAssessment {
	return s.assessment
}

// stageRecorder 记录收到的阶段迁移序列
type stageRecorder struct {
	mu     sync.Mutex
	stages []types.PipelineStage
}

func (r *stageRecorder) OnStageChange(ctx context.Context, submissionUUID string, stage types.PipelineStage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *stageRecorder) recorded() []types.PipelineStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.PipelineStage(nil), r.stages...)
}

func sampleNormalizedText() *types.NormalizedText {
	return &types.NormalizedText{
		FullText: "张三 zhangsan@example.com\n精通Go和MySQL的后端工程师",
		Method:   "native",
		Sections: []types.Section{
			{Kind: types.SectionSkills, Title: "技能", Ordinal: 0, Body: "Go, MySQL"},
		},
	}
}

func testComponents(observer StageObserver) *Components {
	return &Components{
		TextExtractor: &stubTextExtractor{text: sampleNormalizedText()},
		SkillExtractor: &stubSkillExtractor{skills: []types.ExtractedSkill{
			{Name: "Go", Category: types.CategoryProgramming, Confidence: 0.9, Source: types.MethodRule},
			{Name: "MySQL", Category: types.CategoryDatabase, Confidence: 0.8, Source: types.MethodRule},
		}},
		ExperienceExtractor: &stubExperienceExtractor{entries: []types.ExperienceEntry{
			{Company: "示例科技", Title: "后端工程师", Current: true, DurationMonths: 18, Confidence: 0.85},
		}},
		EducationExtractor: &stubEducationExtractor{entries: []types.EducationEntry{
			{Institution: "某大学", Degree: "学士", Field: "计算机科学", Confidence: 0.9},
		}},
		QualityAssessor: &stubQualityAssessor{assessment: &types.QualityAssessment{
			OverallScore: 78.5,
			LetterGrade:  "B",
		}},
		StageObserver: observer,
	}
}

func TestNewResumePipelineMissingComponent(t *testing.T) {
	_, err := NewResumePipeline(nil, nil)
	assert.ErrorIs(t, err, ErrMissingComponent, "components为空时应返回ErrMissingComponent")

	comp := testComponents(nil)
	comp.SkillExtractor = nil
	_, err = NewResumePipeline(comp, nil)
	require.Error(t, err, "缺少技能提取器时创建应失败")
	assert.ErrorIs(t, err, ErrMissingComponent)
	assert.Contains(t, err.Error(), "SkillExtractor")
}

func TestNewResumePipelineDefaults(t *testing.T) {
	p, err := NewResumePipeline(testComponents(nil), &Settings{})
	require.NoError(t, err, "空设置应被补全为默认值")
	assert.Equal(t, "1.0", p.ParserVersion(), "未指定时应使用默认解析器版本")
	assert.Equal(t, 30*time.Second, p.settings.StageTimeout)
	assert.Equal(t, 2*time.Minute, p.settings.PipelineTimeout)
	assert.Equal(t, 3, p.settings.EntityWorkers)
}

func TestComponentStatusWithStubs(t *testing.T) {
	p, err := NewResumePipeline(testComponents(nil), nil)
	require.NoError(t, err)

	// 测试桩不报告方法明细，两个列表都应为空
	textMethods, skillGenerators := p.ComponentStatus()
	assert.Empty(t, textMethods)
	assert.Empty(t, skillGenerators)
}

func TestNewResumePipelineSettingOpts(t *testing.T) {
	p, err := NewResumePipeline(testComponents(nil), nil,
		WithsetParserversion("2.3"),
		WithsetStagetimeout(5*time.Second),
		WithsetEntityworkers(1),
	)
	require.NoError(t, err)
	assert.Equal(t, "2.3", p.ParserVersion(), "选项应覆盖默认解析器版本")
	assert.Equal(t, 5*time.Second, p.settings.StageTimeout)
	assert.Equal(t, 1, p.settings.EntityWorkers)
}

func TestParseSuccess(t *testing.T) {
	recorder := &stageRecorder{}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p, err := NewResumePipeline(testComponents(recorder), nil,
		WithsetClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)

	doc := &types.RawDocument{
		Data:     []byte("dummy"),
		Format:   types.FormatPlainText,
		FileName: "resume.txt",
	}
	resume, err := p.Parse(context.Background(), doc, "uuid-1")
	require.NoError(t, err, "全部组件正常时解析不应失败")
	require.NotNil(t, resume)

	assert.Len(t, resume.Skills, 2, "应采用技能提取结果")
	assert.Len(t, resume.Experience, 1)
	assert.Len(t, resume.Education, 1)
	assert.False(t, resume.Meta.Partial, "没有提取器失败时不应标记Partial")
	assert.Empty(t, resume.Notes)
	assert.Equal(t, fixed, resume.Meta.ParsedAt, "解析时间应来自注入的时钟")
	assert.Equal(t, "native", resume.Meta.ExtractionMethod)
	require.NotNil(t, resume.Quality)
	assert.Equal(t, "B", resume.Quality.LetterGrade)
	require.NotNil(t, resume.Stats, "成功路径必须生成统计数据")
	assert.Len(t, resume.Meta.Timings, 3, "三个阶段都应有耗时记录")

	assert.Equal(t, []types.PipelineStage{
		types.StageExtractingText,
		types.StageExtractingEntities,
		types.StageAssessingQuality,
		types.StageDone,
	}, recorder.recorded(), "阶段迁移顺序不符合预期")
}

func TestParseTextExtractionFailureIsFatal(t *testing.T) {
	recorder := &stageRecorder{}
	comp := testComponents(recorder)
	extractErr := errors.New("提取引擎崩溃")
	comp.TextExtractor = &stubTextExtractor{err: extractErr}

	p, err := NewResumePipeline(comp, nil)
	require.NoError(t, err)

	resume, err := p.Parse(context.Background(), &types.RawDocument{Data: []byte("x"), Format: types.FormatPDF}, "uuid-2")
	assert.Nil(t, resume, "文本提取失败时不应返回部分结果")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr, "致命错误必须封装为PipelineError")
	assert.Equal(t, types.StageExtractingText, perr.Stage)
	assert.Equal(t, "uuid-2", perr.SubmissionUUID)
	assert.ErrorIs(t, err, extractErr)

	stages := recorder.recorded()
	require.NotEmpty(t, stages)
	assert.Equal(t, types.StageFailed, stages[len(stages)-1], "失败后最终阶段应为failed")
}

func TestParseEntityFailureDegradesToPartial(t *testing.T) {
	comp := testComponents(nil)
	comp.ExperienceExtractor = &stubExperienceExtractor{err: errors.New("日期解析失败")}
	comp.EducationExtractor = &stubEducationExtractor{err: errors.New("找不到教育章节")}

	p, err := NewResumePipeline(comp, nil)
	require.NoError(t, err)

	resume, err := p.Parse(context.Background(), &types.RawDocument{Data: []byte("x"), Format: types.FormatPlainText}, "uuid-3")
	require.NoError(t, err, "实体提取器失败不应中断流水线")
	require.NotNil(t, resume)

	assert.True(t, resume.Meta.Partial, "有提取器失败时必须标记Partial")
	assert.Len(t, resume.Notes, 2, "每个失败的提取器都应留下记录")
	assert.Len(t, resume.Skills, 2, "技能提取正常，结果应保留")
	assert.Empty(t, resume.Experience)
	assert.Empty(t, resume.Education)
	require.NotNil(t, resume.Quality, "降级结果仍要走质量评估")

	extractors := map[string]bool{}
	for _, note := range resume.Notes {
		extractors[note.Extractor] = true
	}
	assert.True(t, extractors["experience"])
	assert.True(t, extractors["education"])
}

func TestParseSkillPartialFailureKeepsSkills(t *testing.T) {
	comp := testComponents(nil)
	comp.SkillExtractor = &stubSkillExtractor{
		skills: []types.ExtractedSkill{
			{Name: "Go", Category: types.CategoryProgramming, Confidence: 0.9, Source: types.MethodRule},
		},
		err: errors.New("模型方法超时"),
	}

	p, err := NewResumePipeline(comp, nil)
	require.NoError(t, err)

	resume, err := p.Parse(context.Background(), &types.RawDocument{Data: []byte("x"), Format: types.FormatPlainText}, "uuid-4")
	require.NoError(t, err)

	assert.Len(t, resume.Skills, 1, "技能部分失败时已提取的技能必须保留")
	assert.True(t, resume.Meta.Partial)
	require.Len(t, resume.Notes, 1)
	assert.Equal(t, "skills", resume.Notes[0].Extractor)
}

func TestParseTextWrapsPlainText(t *testing.T) {
	var captured *types.RawDocument
	comp := testComponents(nil)
	base := comp.TextExtractor
	comp.TextExtractor = &captureTextExtractor{inner: base, captured: &captured}

	p, err := NewResumePipeline(comp, nil)
	require.NoError(t, err)

	_, err = p.ParseText(context.Background(), "纯文本简历内容", "uuid-5")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, types.FormatPlainText, captured.Format, "纯文本入口应标记为txt格式")
	assert.Equal(t, "纯文本简历内容", string(captured.Data))
}

type captureTextExtractor struct {
	inner    TextExtractor
	captured **types.RawDocument
}

func (c *captureTextExtractor) Extract(ctx context.Context, doc *types.RawDocument) (*types.NormalizedText, error) {
	*c.captured = doc
	return c.inner.Extract(ctx, doc)
}

func TestExtractSkillsOnly(t *testing.T) {
	p, err := NewResumePipeline(testComponents(nil), nil)
	require.NoError(t, err)

	skills, err := p.ExtractSkillsOnly(context.Background(), "精通Go和MySQL")
	require.NoError(t, err)
	assert.Len(t, skills, 2)
}

func TestExtractSkillsOnlyAllFailed(t *testing.T) {
	comp := testComponents(nil)
	comp.SkillExtractor = &stubSkillExtractor{err: errors.New("全部方法失败")}

	p, err := NewResumePipeline(comp, nil)
	require.NoError(t, err)

	skills, err := p.ExtractSkillsOnly(context.Background(), "无法识别的内容")
	assert.Nil(t, skills)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.StageExtractingEntities, perr.Stage)
}

// TestExtractSkillsOnlyShortInlineText 用默认组件走真实提取链
// 短的行内技能文本不应被文件级长度下限拦截，重复技能合并为一条。
func TestExtractSkillsOnlyShortInlineText(t *testing.T) {
	cfg := config.Default()
	components, err := DefaultComponents(context.Background(), cfg, nil)
	require.NoError(t, err)
	p, err := NewResumePipeline(components, DefaultSettings(cfg))
	require.NoError(t, err)

	skills, err := p.ExtractSkillsOnly(context.Background(), "Skills: Python, Java, Python")
	require.NoError(t, err, "直连文本输入不应因长度不足而失败")

	counts := make(map[string]int)
	for _, s := range skills {
		counts[s.Name]++
	}
	assert.Equal(t, 1, counts["Python"], "重复出现的Python应合并为一条")
	assert.Equal(t, 1, counts["Java"])
}

func TestDefaultComponentsOpts(t *testing.T) {
	skillStub := &stubSkillExtractor{}
	observer := &stageRecorder{}

	components, err := DefaultComponents(context.Background(), config.Default(), nil,
		WithcompSkillextractor(skillStub),
		WithcompStageobserver(observer),
	)
	require.NoError(t, err)
	assert.Same(t, skillStub, components.SkillExtractor, "组件选项应覆盖默认技能提取器")
	assert.Same(t, observer, components.StageObserver)
	assert.NotNil(t, components.TextExtractor, "未覆盖的组件保持默认实现")
}

func TestAssessQualityOnly(t *testing.T) {
	p, err := NewResumePipeline(testComponents(nil), nil)
	require.NoError(t, err)

	assessment, err := p.AssessQualityOnly(context.Background(), "一段简历文本")
	require.NoError(t, err)
	require.NotNil(t, assessment)
	assert.InDelta(t, 78.5, assessment.OverallScore, 0.001)
}

func TestFormatFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		expected types.DocumentFormat
	}{
		{"resume.pdf", types.FormatPDF},
		{"Resume.PDF", types.FormatPDF},
		{"简历.docx", types.FormatDocx},
		{"old.doc", types.FormatDocx},
		{"plain.txt", types.FormatPlainText},
		{"noext", types.FormatPlainText},
		{"archive.zip", types.DocumentFormat("zip")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, formatFromFilename(tc.filename), "文件名: %s", tc.filename)
	}
}
