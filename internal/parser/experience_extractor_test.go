package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

const experienceBody = `Senior Software Engineer | Acme Corp | Jan 2020 - Present
• Developed microservices handling 1M requests per day
• Increased throughput by 40%

Software Engineer | Beta Labs | Remote | Mar 2017 - Dec 2019
• Built data pipelines with Python and Kafka`

func experienceFixture(body string) *types.NormalizedText {
	return &types.NormalizedText{
		FullText: "Experience\n" + body,
		Sections: []types.Section{
			{Kind: types.SectionExperience, Title: "Experience", Ordinal: 0, Body: body},
		},
	}
}

// TestExperienceExtract 验证条目切分、字段解析和排序
func TestExperienceExtract(t *testing.T) {
	fixedNow := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	extractor := NewExperienceExtractor(NewTaxonomy(nil, nil), WithExperienceClock(func() time.Time { return fixedNow }))

	entries, err := extractor.Extract(context.Background(), experienceFixture(experienceBody))
	require.NoError(t, err)
	require.Len(t, entries, 2, "应切分出两个条目")

	// 按开始时间降序
	current := entries[0]
	assert.Equal(t, "Senior Software Engineer", current.Title)
	assert.Equal(t, "Acme Corp", current.Company)
	assert.True(t, current.Current, "应标记为在职")
	assert.Nil(t, current.End)
	require.NotNil(t, current.Start)
	assert.Equal(t, 2020, current.Start.Year())
	assert.Equal(t, 72, current.DurationMonths, "在职条目的持续月数应按当前时间计算")
	require.Len(t, current.Achievements, 2, "成就要点数量错误")
	assert.Equal(t, "Developed microservices handling 1M requests per day", current.Achievements[0])
	assert.InDelta(t, 1.0, current.Confidence, 1e-9, "公司/头衔/日期/要点齐全时置信度应达上限")

	past := entries[1]
	assert.Equal(t, "Software Engineer", past.Title)
	assert.Equal(t, "Beta Labs", past.Company)
	assert.Equal(t, "Remote", past.Location)
	assert.False(t, past.Current)
	require.NotNil(t, past.End)
	assert.Equal(t, 2019, past.End.Year())
	assert.Equal(t, 33, past.DurationMonths)
	assert.Contains(t, past.Technologies, "Python", "块内词表命中应进入技术集合")
	assert.Contains(t, past.Technologies, "Kafka")
}

// TestExperienceSortDescending 较早的条目写在前面时仍按开始时间降序输出
func TestExperienceSortDescending(t *testing.T) {
	body := "Engineer | Old Corp | Jan 2015 - Dec 2016\n• Maintained legacy systems\n" +
		"Engineer | New Corp | Jan 2021 - Dec 2022\n• Built new platform"
	extractor := NewExperienceExtractor(NewTaxonomy(nil, nil))

	entries, err := extractor.Extract(context.Background(), experienceFixture(body))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "New Corp", entries[0].Company, "最近的经历应排在最前")
	assert.Equal(t, "Old Corp", entries[1].Company)
}

// TestExperienceNoSection 缺失工作经历章节时返回空
func TestExperienceNoSection(t *testing.T) {
	extractor := NewExperienceExtractor(NewTaxonomy(nil, nil))

	entries, err := extractor.Extract(context.Background(), &types.NormalizedText{
		FullText: "Skills\nGo",
		Sections: []types.Section{{Kind: types.SectionSkills, Ordinal: 0, Body: "Go"}},
	})
	require.NoError(t, err)
	assert.Empty(t, entries, "无章节时不应产出条目")
}

// TestExperienceUndatedBlock 无日期时整个章节作为一个条目解析
func TestExperienceUndatedBlock(t *testing.T) {
	body := "Backend Developer\nGamma Technologies Inc.\nImplemented payment workflows"
	extractor := NewExperienceExtractor(NewTaxonomy(nil, nil))

	entries, err := extractor.Extract(context.Background(), experienceFixture(body))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "Backend Developer", entry.Title)
	assert.NotEmpty(t, entry.Company, "应从邻近行补齐公司")
	assert.Nil(t, entry.Start)
	assert.Equal(t, 0, entry.DurationMonths)
	assert.Less(t, entry.Confidence, 1.0, "缺日期的条目置信度应降低")
}

// TestSplitTitleCompany 头部行的头衔/公司拆分
func TestSplitTitleCompany(t *testing.T) {
	title, company := splitTitleCompany("Senior Engineer | Acme Corp")
	assert.Equal(t, "Senior Engineer", title)
	assert.Equal(t, "Acme Corp", company)

	title, company = splitTitleCompany("Acme Corp | Senior Engineer")
	assert.Equal(t, "Senior Engineer", title, "头衔位置颠倒时也应正确识别")
	assert.Equal(t, "Acme Corp", company)

	title, company = splitTitleCompany("Data Analyst at DataWorks")
	assert.Equal(t, "Data Analyst", title)
	assert.Equal(t, "DataWorks", company)
}
