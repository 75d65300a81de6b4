package parser

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

// strongResume 构造一份高质量简历的聚合根
func strongResume() *types.ParsedResume {
	fullText := `John Smith
john@example.com

Summary
Senior engineer with 8 years of experience in software development, data analysis and team leadership.

Experience
Senior Software Engineer | Acme Corp | Jan 2020 - Present
• Developed microservices handling 1M requests per day
• Increased throughput by 40% and reduced infrastructure cost by $50000
• Led a team of 5 people

Software Engineer | Beta Labs | Mar 2017 - Dec 2019
• Built and maintained data pipelines for analytics
• Improved the deployment process and delivered 12 projects

Education
Stanford University
Bachelor of Science in Computer Science, 2014 - 2018

Skills
Python, Go, Docker, Kubernetes, PostgreSQL, Redis, Leadership`

	start2020 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	start2017 := time.Date(2017, time.March, 1, 0, 0, 0, 0, time.UTC)
	end2019 := time.Date(2019, time.December, 1, 0, 0, 0, 0, time.UTC)
	eduEnd := time.Date(2018, time.June, 1, 0, 0, 0, 0, time.UTC)

	return &types.ParsedResume{
		Text: &types.NormalizedText{
			FullText: fullText,
			Sections: []types.Section{
				{Kind: types.SectionUnknown, Ordinal: 0, Body: "John Smith\njohn@example.com"},
				{Kind: types.SectionSummary, Ordinal: 1, Body: "Senior engineer..."},
				{Kind: types.SectionExperience, Ordinal: 2, Body: "..."},
				{Kind: types.SectionEducation, Ordinal: 3, Body: "..."},
				{Kind: types.SectionSkills, Ordinal: 4, Body: "Python, Go, Docker"},
			},
		},
		Contact: types.ContactInfo{Name: "John Smith", Email: "john@example.com"},
		Skills: []types.ExtractedSkill{
			{Name: "Python"}, {Name: "Go"}, {Name: "Docker"},
			{Name: "Kubernetes"}, {Name: "PostgreSQL"}, {Name: "Redis"},
		},
		Experience: []types.ExperienceEntry{
			{Company: "Acme Corp", Title: "Senior Software Engineer", Start: &start2020, Current: true},
			{Company: "Beta Labs", Title: "Software Engineer", Start: &start2017, End: &end2019},
		},
		Education: []types.EducationEntry{
			{Institution: "Stanford University", Degree: "Bachelor of Science", Field: "Computer Science", End: &eduEnd},
		},
	}
}

// weakResume 构造一份几乎为空的简历
func weakResume() *types.ParsedResume {
	return &types.ParsedResume{
		Text: &types.NormalizedText{
			FullText: "some very short note",
			Sections: []types.Section{
				{Kind: types.SectionUnknown, Ordinal: 0, Body: "some very short note"},
			},
		},
	}
}

// TestAssessStrongResume 高质量简历应得到高分和A/B级
func TestAssessStrongResume(t *testing.T) {
	assessor := NewQualityAssessor()
	resume := strongResume()

	result := assessor.Assess(context.Background(), resume)
	require.NotNil(t, result)

	assert.GreaterOrEqual(t, result.OverallScore, 90.0, "高质量简历总分应在90以上")
	assert.Equal(t, "A", result.LetterGrade)
	assert.Len(t, result.CriterionScores, 5, "五个维度都应有分数")
	assert.InDelta(t, 100.0, result.CriterionScores[types.CriterionCompleteness], 1e-9, "章节和实体齐全时完整性应为满分")
	assert.InDelta(t, 100.0, result.CriterionScores[types.CriterionContentQuality], 1e-9)

	assert.Empty(t, result.Suggestions, "各维度达标时不应有建议")
	assert.Empty(t, result.Weaknesses)
	assert.Len(t, result.Strengths, 4, "应识别出全部亮点")

	// 总分保留一位小数
	assert.InDelta(t, result.OverallScore, math.Round(result.OverallScore*10)/10, 1e-9)
}

// TestAssessWeakResume 空洞简历应得到低分、F级和完整的建议列表
func TestAssessWeakResume(t *testing.T) {
	assessor := NewQualityAssessor()

	result := assessor.Assess(context.Background(), weakResume())
	require.NotNil(t, result)

	assert.Less(t, result.OverallScore, 60.0)
	assert.Equal(t, "F", result.LetterGrade)
	assert.InDelta(t, 0.0, result.CriterionScores[types.CriterionCompleteness], 1e-9)

	assert.Contains(t, result.Suggestions, "Add a comprehensive skills section with technical and soft skills")
	assert.Contains(t, result.Suggestions, "Include relevant work experience with specific achievements")
	assert.Contains(t, result.Suggestions, "Add your educational background and relevant certifications")
	assert.Contains(t, result.Weaknesses, "No skills section or insufficient skills listed")
	assert.Empty(t, result.Strengths)
}

// TestCompletenessNotePenalty 实体提取的非致命失败按条扣分
func TestCompletenessNotePenalty(t *testing.T) {
	assessor := NewQualityAssessor()
	resume := strongResume()
	resume.Notes = []types.EntityNote{
		{Extractor: "skills", Message: "生成方法超时"},
		{Extractor: "education", Message: "生成方法超时"},
	}

	score := assessor.assessCompleteness(resume)
	assert.InDelta(t, 80.0, score, 1e-9, "两条失败记录应各扣10分")
}

// TestAssessCustomWeights 自定义权重应改变总分构成
func TestAssessCustomWeights(t *testing.T) {
	assessor := NewQualityAssessor(WithCriteriaWeights(map[string]float64{
		"completeness":      1.0,
		"structure":         0,
		"content_quality":   0,
		"ats_compatibility": 0,
		"professionalism":   0,
	}))

	result := assessor.Assess(context.Background(), strongResume())
	assert.InDelta(t, 100.0, result.OverallScore, 1e-9, "权重集中到完整性时总分应等于完整性分")
	assert.Equal(t, "A", result.LetterGrade)
}

// TestAssessSuggestionThreshold 阈值抬高后达标维度也会产出建议
func TestAssessSuggestionThreshold(t *testing.T) {
	assessor := NewQualityAssessor(WithSuggestionThreshold(101))

	result := assessor.Assess(context.Background(), strongResume())
	assert.Len(t, result.Suggestions, 5, "阈值高于满分时五个维度都应有建议")
}

// TestLetterGrade 字母等级边界
func TestLetterGrade(t *testing.T) {
	cases := []struct {
		score float64
		grade string
	}{
		{95.5, "A"}, {90, "A"}, {89.9, "B"}, {80, "B"},
		{79.9, "C"}, {70, "C"}, {69.9, "D"}, {60, "D"},
		{59.9, "F"}, {0, "F"},
	}
	for _, c := range cases {
		assert.Equal(t, c.grade, letterGrade(c.score), "分数%.1f的等级错误", c.score)
	}
}
