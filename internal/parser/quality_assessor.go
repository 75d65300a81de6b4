package parser

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/types"
)

var qualityTracer = otel.Tracer("parser.quality_assessor")

// 各维度默认权重，总和为1.0
var defaultCriteriaWeights = map[types.CriterionName]float64{
	types.CriterionCompleteness:    0.25,
	types.CriterionStructure:       0.20,
	types.CriterionContentQuality:  0.25,
	types.CriterionATS:             0.15,
	types.CriterionProfessionalism: 0.15,
}

// 动作动词表，内容质量检查用
var actionVerbs = []string{
	"developed", "implemented", "managed", "led", "created", "designed",
	"built", "maintained", "improved", "increased", "decreased", "achieved",
	"coordinated", "organized", "planned", "executed", "delivered", "launched",
	"established", "grew", "expanded", "optimized", "streamlined", "enhanced",
}

// 可量化成果的模式
var quantifiablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+%`),
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`(?i)\d+\s+(?:people|employees|users|customers)`),
	regexp.MustCompile(`(?i)\d+\s+(?:years|months|weeks)`),
	regexp.MustCompile(`(?i)increased\s+by\s+\d+`),
	regexp.MustCompile(`(?i)decreased\s+by\s+\d+`),
}

// ATS高频关键词
var atsKeywords = []string{
	"experience", "skills", "education", "management", "development",
	"project", "team", "analysis", "design", "implementation",
	"software", "data", "engineering", "communication", "leadership",
}

// 不够正式的口语词
var unprofessionalWords = []string{"awesome", "cool", "stuff", "things", "guy", "dude"}

// 常见拼写错误
var commonMisspellings = []string{"teh", "recieve", "seperate", "occured", "definately"}

// QualityAssessor 简历质量评估器
// 五个维度各自打分(0-100)，按权重加权得到总分；
// 评估结果是派生数据，每次评估整体重建
type QualityAssessor struct {
	weights             map[types.CriterionName]float64
	suggestionThreshold float64 // 维度分低于该阈值(0-100)时生成改进建议
	logger              zerolog.Logger
	now                 func() time.Time
}

// QualityAssessorOption 配置选项
type QualityAssessorOption func(*QualityAssessor)

// WithCriteriaWeights 覆盖维度权重；未知维度名被忽略
func WithCriteriaWeights(weights map[string]float64) QualityAssessorOption {
	return func(a *QualityAssessor) {
		for name, w := range weights {
			criterion := types.CriterionName(name)
			if _, ok := a.weights[criterion]; ok && w >= 0 {
				a.weights[criterion] = w
			}
		}
	}
}

// WithSuggestionThreshold 配置建议生成阈值
func WithSuggestionThreshold(threshold float64) QualityAssessorOption {
	return func(a *QualityAssessor) {
		if threshold > 0 {
			a.suggestionThreshold = threshold
		}
	}
}

// WithAssessorClock 注入时钟，测试用
func WithAssessorClock(now func() time.Time) QualityAssessorOption {
	return func(a *QualityAssessor) {
		a.now = now
	}
}

// NewQualityAssessor 创建质量评估器
func NewQualityAssessor(opts ...QualityAssessorOption) *QualityAssessor {
	weights := make(map[types.CriterionName]float64, len(defaultCriteriaWeights))
	for k, v := range defaultCriteriaWeights {
		weights[k] = v
	}
	a := &QualityAssessor{
		weights:             weights,
		suggestionThreshold: 70,
		logger:              logger.With("component", "quality_assessor"),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess 评估简历质量
// resume为前序阶段填充好的聚合根（Quality字段为nil），本方法不修改入参
func (a *QualityAssessor) Assess(ctx context.Context, resume *types.ParsedResume) *types.QualityAssessment {
	_, span := qualityTracer.Start(ctx, "QualityAssessor.Assess")
	defer span.End()

	scores := map[types.CriterionName]float64{
		types.CriterionCompleteness:    a.assessCompleteness(resume),
		types.CriterionStructure:       a.assessStructure(resume),
		types.CriterionContentQuality:  a.assessContentQuality(resume),
		types.CriterionATS:             a.assessATSCompatibility(resume),
		types.CriterionProfessionalism: a.assessProfessionalism(resume),
	}

	var overall, totalWeight float64
	for criterion, score := range scores {
		overall += score * a.weights[criterion]
		totalWeight += a.weights[criterion]
	}
	if totalWeight > 0 {
		overall /= totalWeight
	}
	// 总分保留一位小数
	overall = math.Round(overall*10) / 10

	result := &types.QualityAssessment{
		OverallScore:    overall,
		CriterionScores: roundScores(scores),
		Suggestions:     a.buildSuggestions(scores, resume),
		Strengths:       buildStrengths(resume),
		Weaknesses:      buildWeaknesses(resume),
		LetterGrade:     letterGrade(overall),
	}

	span.SetAttributes(
		attribute.Float64("quality.overall_score", overall),
		attribute.String("quality.grade", result.LetterGrade),
	)
	a.logger.Info().
		Float64("overall_score", overall).
		Str("grade", result.LetterGrade).
		Msg("质量评估完成")
	return result
}

// assessCompleteness 完整性：关键章节和实体是否齐全
// 每条实体提取失败记录额外扣10分
func (a *QualityAssessor) assessCompleteness(resume *types.ParsedResume) float64 {
	checks := 0
	hits := 0.0

	has := func(kind types.SectionKind) bool {
		if resume.Text == nil {
			return false
		}
		s := resume.Text.SectionOfKind(kind)
		return s != nil
	}

	// 关键章节
	for _, kind := range []types.SectionKind{
		types.SectionSummary, types.SectionExperience,
		types.SectionEducation, types.SectionSkills,
	} {
		checks++
		if has(kind) {
			hits++
		}
	}

	// 提取实体
	checks++
	if len(resume.Skills) > 0 {
		hits++
	}
	checks++
	if len(resume.Experience) > 0 {
		hits++
	}
	checks++
	if len(resume.Education) > 0 {
		hits++
	}
	checks++
	if !resume.Contact.Empty() {
		hits++
	}

	score := hits / float64(checks) * 100

	// 提取器部分失败时按条扣分
	score -= float64(len(resume.Notes)) * 10
	if score < 0 {
		score = 0
	}
	return score
}

// assessStructure 结构：章节数量、格式一致性、章节顺序、篇幅
func (a *QualityAssessor) assessStructure(resume *types.ParsedResume) float64 {
	if resume.Text == nil {
		return 0
	}
	text := resume.Text.FullText
	checks := 0
	hits := 0.0

	// 足够的章节划分
	checks++
	if len(resume.Text.Sections) >= 3 {
		hits++
	}

	// 格式一致性：有要点符号但不过度
	checks++
	lines := strings.Split(text, "\n")
	bullets := 0
	for _, line := range lines {
		if bulletPrefixRegex.MatchString(line) {
			bullets++
		}
	}
	if bullets > 0 && float64(bullets) < float64(len(lines))*0.8 {
		hits++
	}

	// 章节顺序：工作经历在教育经历之前（典型排布）
	checks++
	expSection := resume.Text.SectionOfKind(types.SectionExperience)
	eduSection := resume.Text.SectionOfKind(types.SectionEducation)
	if expSection == nil || eduSection == nil || expSection.Ordinal < eduSection.Ordinal {
		hits++
	}

	// 篇幅
	checks++
	wordCount := len(strings.Fields(text))
	switch {
	case wordCount >= 200 && wordCount <= 800: // 理想篇幅
		hits += 1.0
	case wordCount >= 100 && wordCount <= 1200: // 可接受
		hits += 0.7
	case wordCount > 1200: // 过长
		hits += 0.3
	}

	return hits / float64(checks) * 100
}

// assessContentQuality 内容质量：动作动词、可量化成果、经历时效性和教育相关性
func (a *QualityAssessor) assessContentQuality(resume *types.ParsedResume) float64 {
	if resume.Text == nil {
		return 0
	}
	text := strings.ToLower(resume.Text.FullText)
	checks := 0
	hits := 0.0

	// 动作动词
	checks++
	verbCount := 0
	for _, verb := range actionVerbs {
		if strings.Contains(text, verb) {
			verbCount++
		}
	}
	switch {
	case verbCount >= 5:
		hits += 1.0
	case verbCount >= 3:
		hits += 0.7
	case verbCount >= 1:
		hits += 0.4
	}

	// 可量化成果
	checks++
	quantifiable := 0
	for _, pattern := range quantifiablePatterns {
		quantifiable += len(pattern.FindAllString(resume.Text.FullText, -1))
	}
	switch {
	case quantifiable >= 3:
		hits += 1.0
	case quantifiable >= 1:
		hits += 0.6
	}

	// 近期经历：在职或两年内结束
	checks++
	cutoff := a.now().AddDate(-2, 0, 0)
	for _, exp := range resume.Experience {
		if exp.Current || (exp.End != nil && exp.End.After(cutoff)) {
			hits++
			break
		}
	}

	// 教育相关性
	checks++
	relevantFields := []string{
		"computer", "engineering", "science", "technology", "business",
		"management", "administration", "mathematics", "statistics",
		"计算机", "软件", "信息",
	}
	for _, edu := range resume.Education {
		field := strings.ToLower(edu.Field)
		matched := false
		for _, relevant := range relevantFields {
			if strings.Contains(field, relevant) {
				matched = true
				break
			}
		}
		if matched {
			hits++
			break
		}
	}

	return hits / float64(checks) * 100
}

// assessATSCompatibility ATS兼容性：关键词密度、简洁排版、标准章节标题
func (a *QualityAssessor) assessATSCompatibility(resume *types.ParsedResume) float64 {
	if resume.Text == nil {
		return 0
	}
	text := strings.ToLower(resume.Text.FullText)
	checks := 0
	hits := 0.0

	// 关键词
	checks++
	keywordMatches := 0
	for _, keyword := range atsKeywords {
		if strings.Contains(text, keyword) {
			keywordMatches++
		}
	}
	switch {
	case keywordMatches >= 8:
		hits += 1.0
	case keywordMatches >= 5:
		hits += 0.7
	case keywordMatches >= 3:
		hits += 0.4
	}

	// 简洁排版：装饰字符占比低
	checks++
	formattingChars := strings.Count(text, "*") + strings.Count(text, "_") + strings.Count(text, "`")
	if float64(formattingChars) < float64(len(text))*0.05 {
		hits++
	}

	// 标准章节标题数量
	checks++
	standardHeaders := 0
	for _, s := range resume.Text.Sections {
		if s.Kind != types.SectionUnknown {
			standardHeaders++
		}
	}
	switch {
	case standardHeaders >= 3:
		hits += 1.0
	case standardHeaders >= 2:
		hits += 0.7
	}

	return hits / float64(checks) * 100
}

// assessProfessionalism 专业性：拼写、语气和表达克制程度
func (a *QualityAssessor) assessProfessionalism(resume *types.ParsedResume) float64 {
	if resume.Text == nil {
		return 0
	}
	text := strings.ToLower(resume.Text.FullText)
	checks := 0
	hits := 0.0

	// 常见拼写错误
	checks++
	hasErrors := false
	for _, err := range commonMisspellings {
		if strings.Contains(text, err) {
			hasErrors = true
			break
		}
	}
	if !hasErrors {
		hits++
	}

	// 口语化用词
	checks++
	casual := false
	for _, word := range unprofessionalWords {
		if containsWord(text, word) {
			casual = true
			break
		}
	}
	if !casual {
		hits++
	}

	// 表达克制：叹号不过量
	checks++
	if strings.Count(text, "!") <= 3 {
		hits++
	}

	return hits / float64(checks) * 100
}

// buildSuggestions 低于阈值的维度生成改进建议，再补充针对缺失实体的建议
// 输出顺序固定：completeness -> structure -> content -> ats -> professionalism -> 实体建议
func (a *QualityAssessor) buildSuggestions(scores map[types.CriterionName]float64, resume *types.ParsedResume) []string {
	var suggestions []string

	if scores[types.CriterionCompleteness] < a.suggestionThreshold {
		suggestions = append(suggestions, "Add missing required sections (contact, summary, experience, education, skills)")
	}
	if scores[types.CriterionStructure] < a.suggestionThreshold {
		suggestions = append(suggestions, "Improve resume structure with clear section headers and consistent formatting")
	}
	if scores[types.CriterionContentQuality] < a.suggestionThreshold {
		suggestions = append(suggestions, "Add more action verbs and quantifiable achievements to make your experience stand out")
	}
	if scores[types.CriterionATS] < a.suggestionThreshold {
		suggestions = append(suggestions, "Include more industry-specific keywords to improve ATS compatibility")
	}
	if scores[types.CriterionProfessionalism] < a.suggestionThreshold {
		suggestions = append(suggestions, "Review and improve writing quality and professional tone")
	}

	if len(resume.Skills) == 0 {
		suggestions = append(suggestions, "Add a comprehensive skills section with technical and soft skills")
	}
	if len(resume.Experience) == 0 {
		suggestions = append(suggestions, "Include relevant work experience with specific achievements")
	}
	if len(resume.Education) == 0 {
		suggestions = append(suggestions, "Add your educational background and relevant certifications")
	}

	return suggestions
}

// buildStrengths 识别简历亮点
func buildStrengths(resume *types.ParsedResume) []string {
	var strengths []string

	if resume.Text != nil && len(resume.Text.Sections) >= 4 {
		strengths = append(strengths, "Well-organized with multiple relevant sections")
	}
	if len(resume.Skills) > 5 {
		strengths = append(strengths, "Comprehensive skills section")
	}
	if len(resume.Experience) >= 2 {
		strengths = append(strengths, "Multiple work experiences showing career progression")
	}
	if len(resume.Education) >= 1 {
		strengths = append(strengths, "Strong educational background")
	}

	return strengths
}

// buildWeaknesses 识别简历短板
func buildWeaknesses(resume *types.ParsedResume) []string {
	var weaknesses []string

	if resume.Text == nil || len(resume.Text.Sections) < 3 {
		weaknesses = append(weaknesses, "Missing important resume sections")
	}
	if len(resume.Skills) == 0 {
		weaknesses = append(weaknesses, "No skills section or insufficient skills listed")
	}
	if len(resume.Experience) == 0 {
		weaknesses = append(weaknesses, "No work experience listed")
	}
	if len(resume.Education) == 0 {
		weaknesses = append(weaknesses, "No educational background provided")
	}

	return weaknesses
}

// letterGrade 按总分映射字母等级
func letterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// roundScores 各维度分保留一位小数
func roundScores(scores map[types.CriterionName]float64) map[types.CriterionName]float64 {
	rounded := make(map[types.CriterionName]float64, len(scores))
	for k, v := range scores {
		rounded[k] = math.Round(v*10) / 10
	}
	return rounded
}
