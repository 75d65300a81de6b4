package processor

import (
	"testing"

	"resume-engine-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStatisticsNilResume(t *testing.T) {
	assert.Nil(t, BuildStatistics(nil, 10), "resume为空时应返回nil")
}

func TestBuildStatisticsFullResume(t *testing.T) {
	resume := &types.ParsedResume{
		Text: &types.NormalizedText{
			FullText: "第一行 内容\n第二行",
			Sections: []types.Section{
				{Kind: types.SectionSummary, Title: "概述", Ordinal: 0, Body: "后端工程师"},
				{Kind: types.SectionSkills, Title: "技能", Ordinal: 1, Body: "Go"},
			},
		},
		Contact: types.ContactInfo{Email: "zhangsan@example.com"},
		Skills: []types.ExtractedSkill{
			{Name: "Go", Category: types.CategoryProgramming, Confidence: 0.9, Source: types.MethodRule},
			{Name: "Python", Category: types.CategoryProgramming, Confidence: 0.7, Source: types.MethodRegex},
			{Name: "MySQL", Category: types.CategoryDatabase, Confidence: 0.8, Source: types.MethodRule},
		},
		Experience: []types.ExperienceEntry{
			{Company: "甲公司", DurationMonths: 24, Current: true},
			{Company: "乙公司", DurationMonths: 12},
		},
		Education: []types.EducationEntry{
			{Institution: "某大学", Degree: "学士"},
		},
	}

	stats := BuildStatistics(resume, 2)
	require.NotNil(t, stats)

	assert.Equal(t, 2, stats.Text.SectionCount)
	assert.Equal(t, 2, stats.Text.LineCount)
	assert.Equal(t, 3, stats.Text.WordCount)

	assert.Equal(t, 3, stats.Skills.TotalSkills)
	assert.Equal(t, 2, stats.Skills.ByCategory[types.CategoryProgramming])
	assert.Equal(t, 1, stats.Skills.ByCategory[types.CategoryDatabase])
	assert.Equal(t, 2, stats.Skills.ByMethod[types.MethodRule])
	assert.InDelta(t, 0.8, stats.Skills.AverageConfidence, 0.001)

	require.Len(t, stats.Skills.TopSkills, 2, "TopSkills应截断到指定数量")
	assert.Equal(t, "Go", stats.Skills.TopSkills[0].Name, "TopSkills应按置信度降序")
	assert.Equal(t, "MySQL", stats.Skills.TopSkills[1].Name)

	assert.Equal(t, 2, stats.Experience.TotalEntries)
	assert.Equal(t, 36, stats.Experience.TotalDurationMonths)
	assert.Equal(t, 1, stats.Experience.CurrentPositions)
	assert.InDelta(t, 18.0, stats.Experience.AverageDurationMonth, 0.001)

	assert.Equal(t, 1, stats.Education.TotalEntries)
	assert.Equal(t, []string{"某大学"}, stats.Education.Institutions)
	assert.Equal(t, []string{"学士"}, stats.Education.Degrees)

	// 六组信息全部命中
	assert.InDelta(t, 1.0, stats.Completeness, 0.001, "全部信息组命中时完整度应为1")
}

func TestBuildStatisticsTopSkillStableOrder(t *testing.T) {
	skills := []types.ExtractedSkill{
		{Name: "Docker", Confidence: 0.8},
		{Name: "Kubernetes", Confidence: 0.8},
		{Name: "Go", Confidence: 0.9},
	}
	stats := buildSkillStatistics(skills, 3)
	require.Len(t, stats.TopSkills, 3)
	assert.Equal(t, "Go", stats.TopSkills[0].Name)
	// 同分技能保持输入顺序
	assert.Equal(t, "Docker", stats.TopSkills[1].Name)
	assert.Equal(t, "Kubernetes", stats.TopSkills[2].Name)
}

func TestParsingCompletenessPartial(t *testing.T) {
	resume := &types.ParsedResume{
		Text: &types.NormalizedText{FullText: "只有全文"},
		Skills: []types.ExtractedSkill{
			{Name: "Go", Confidence: 0.9},
		},
	}
	stats := BuildStatistics(resume, 10)
	require.NotNil(t, stats)
	// 命中全文和技能两组
	assert.InDelta(t, 2.0/6.0, stats.Completeness, 0.001)
}

func TestBuildStatisticsEmptyEntities(t *testing.T) {
	resume := &types.ParsedResume{Text: &types.NormalizedText{FullText: "   "}}
	stats := BuildStatistics(resume, 10)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Skills.TotalSkills)
	assert.Zero(t, stats.Skills.AverageConfidence)
	assert.Zero(t, stats.Experience.AverageDurationMonth)
	assert.Zero(t, stats.Completeness, "空白全文不应计入完整度")
}
