package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

const educationBody = `Stanford University
Bachelor of Science in Computer Science
2014 - 2018
GPA: 3.8, Dean's List
清华大学
软件工程 硕士
2018 - 2020`

func educationFixture(body string) *types.NormalizedText {
	return &types.NormalizedText{
		FullText: "Education\n" + body,
		Sections: []types.Section{
			{Kind: types.SectionEducation, Title: "Education", Ordinal: 0, Body: body},
		},
	}
}

// TestEducationExtract 验证条目切分、字段解析和排序
func TestEducationExtract(t *testing.T) {
	extractor := NewEducationExtractor()

	entries, err := extractor.Extract(context.Background(), educationFixture(educationBody))
	require.NoError(t, err)
	require.Len(t, entries, 2, "应切分出两个条目")

	// 按结束时间降序，较晚毕业的排在前面
	master := entries[0]
	assert.Equal(t, "清华大学", master.Institution)
	assert.Equal(t, "硕士", master.Degree)
	assert.Equal(t, "软件工程", master.Field)
	require.NotNil(t, master.End)
	assert.Equal(t, 2020, master.End.Year())

	bachelor := entries[1]
	assert.Equal(t, "Stanford University", bachelor.Institution)
	assert.Equal(t, "Bachelor of Science", bachelor.Degree)
	assert.Equal(t, "Computer Science", bachelor.Field)
	require.NotNil(t, bachelor.Start)
	assert.Equal(t, 2014, bachelor.Start.Year())
	require.NotNil(t, bachelor.End)
	assert.Equal(t, 2018, bachelor.End.Year())
	require.NotNil(t, bachelor.GPA, "GPA应被解析")
	assert.InDelta(t, 3.8, *bachelor.GPA, 1e-9)
	assert.Equal(t, []string{"Dean's List"}, bachelor.Honors)
	assert.InDelta(t, 1.0, bachelor.Confidence, 1e-9, "关键词和年份齐全时置信度应达上限")
}

// TestEducationNoSection 缺失教育章节时返回空
func TestEducationNoSection(t *testing.T) {
	extractor := NewEducationExtractor()

	entries, err := extractor.Extract(context.Background(), &types.NormalizedText{
		FullText: "Skills\nGo",
		Sections: []types.Section{{Kind: types.SectionSkills, Ordinal: 0, Body: "Go"}},
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestEducationSingleYear 单个年份按毕业年份处理
func TestEducationSingleYear(t *testing.T) {
	extractor := NewEducationExtractor()

	entries, err := extractor.Extract(context.Background(),
		educationFixture("MIT College of Engineering\nMaster of Science, 2019"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Start, "单年份条目不应有开始时间")
	require.NotNil(t, entries[0].End)
	assert.Equal(t, 2019, entries[0].End.Year())
}

// TestParseGPA GPA解析与量程校验
func TestParseGPA(t *testing.T) {
	extractor := NewEducationExtractor()

	gpa := extractor.parseGPA("GPA: 3.8")
	require.NotNil(t, gpa)
	assert.InDelta(t, 3.8, *gpa, 1e-9)

	// 写明量程时以斜杠后的值为准
	gpa = extractor.parseGPA("GPA 4.5/5.0")
	require.NotNil(t, gpa, "斜杠量程内的值应保留")
	assert.InDelta(t, 4.5, *gpa, 1e-9)

	assert.Nil(t, extractor.parseGPA("GPA: 4.5"), "超出默认量程的值应丢弃")
	assert.Nil(t, extractor.parseGPA("no gpa here"), "无GPA时应返回nil")

	// 自定义量程
	fivePoint := NewEducationExtractor(WithGPAScale(5.0))
	gpa = fivePoint.parseGPA("GPA: 4.5")
	require.NotNil(t, gpa)
	assert.InDelta(t, 4.5, *gpa, 1e-9)
}

// TestParseHonors 荣誉收集与去重
func TestParseHonors(t *testing.T) {
	honors := parseHonors("Graduated Summa Cum Laude, Dean's List 2017, Dean's List 2018")
	assert.Contains(t, honors, "Summa Cum Laude")
	count := 0
	for _, h := range honors {
		if h == "Dean's List" {
			count++
		}
	}
	assert.Equal(t, 1, count, "重复荣誉应去重")
}

// TestContainsWord 词边界匹配
func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("Bachelor of Science in CS", "Bachelor of Science"))
	assert.False(t, containsWord("Mastery of tools", "Master"), "词内子串不应命中")
	assert.True(t, containsWord("获得硕士学位", "硕士"), "纯汉字词条直接做包含匹配")
}
