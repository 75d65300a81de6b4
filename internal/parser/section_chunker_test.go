package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

const sampleResumeText = `John Smith
john@example.com

Summary
Experienced engineer with a focus on backend systems.

Experience
Senior Engineer | Acme Corp | Jan 2020 - Present

Education
Stanford University

Skills
Python, Go`

// TestChunkEnglishResume 验证英文简历的章节切分
func TestChunkEnglishResume(t *testing.T) {
	chunker, err := NewSectionChunker(ChunkerConfig{})
	require.NoError(t, err, "创建分块器失败")

	sections := chunker.Chunk(sampleResumeText)
	require.Len(t, sections, 5, "章节数量错误")

	// 首个标题之前的内容归为UNKNOWN头部块
	assert.Equal(t, types.SectionUnknown, sections[0].Kind)
	assert.Contains(t, sections[0].Body, "john@example.com", "头部块应包含联系方式")

	assert.Equal(t, types.SectionSummary, sections[1].Kind)
	assert.Equal(t, types.SectionExperience, sections[2].Kind)
	assert.Equal(t, types.SectionEducation, sections[3].Kind)
	assert.Equal(t, types.SectionSkills, sections[4].Kind)

	assert.Contains(t, sections[2].Body, "Acme Corp", "工作经历正文归属错误")
	assert.Equal(t, "Skills", sections[4].Title, "章节标题应保留原行文本")

	// 序号严格递增并反映文档顺序
	for i, s := range sections {
		assert.Equal(t, i, s.Ordinal, "章节序号应与文档顺序一致")
	}
}

// TestChunkChineseResume 验证中文标题切分
func TestChunkChineseResume(t *testing.T) {
	chunker, err := NewSectionChunker(ChunkerConfig{})
	require.NoError(t, err)

	text := "张伟\n\n工作经历\n后端工程师 2020年1月 至 至今\n\n教育背景\n清华大学\n\n专业技能\nGo、MySQL"
	sections := chunker.Chunk(text)
	require.Len(t, sections, 4)

	assert.Equal(t, types.SectionExperience, sections[1].Kind)
	assert.Equal(t, types.SectionEducation, sections[2].Kind)
	assert.Equal(t, types.SectionSkills, sections[3].Kind)
}

// TestChunkCustomRegex 验证自定义标题正则覆盖内置模式
func TestChunkCustomRegex(t *testing.T) {
	chunker, err := NewSectionChunker(ChunkerConfig{
		CustomSectionRegexMap: map[string]string{
			"SKILLS": `(?i)^\s*我的技能\s*$`,
		},
	})
	require.NoError(t, err)

	sections := chunker.Chunk("我的技能\nGo, Python")
	require.Len(t, sections, 1)
	assert.Equal(t, types.SectionSkills, sections[0].Kind)
	assert.Equal(t, "Go, Python", sections[0].Body)
}

// TestChunkInvalidCustomRegex 非法自定义正则应报错
func TestChunkInvalidCustomRegex(t *testing.T) {
	_, err := NewSectionChunker(ChunkerConfig{
		CustomSectionRegexMap: map[string]string{"SKILLS": `([`},
	})
	assert.Error(t, err, "非法正则应返回错误")
}

// TestChunkBodyLineNotHeader 正文中出现关键词不应误判为标题
func TestChunkBodyLineNotHeader(t *testing.T) {
	chunker, err := NewSectionChunker(ChunkerConfig{})
	require.NoError(t, err)

	text := "Summary\nTen years of hands-on experience building education software and skills platforms."
	sections := chunker.Chunk(text)
	require.Len(t, sections, 1, "正文句子不应切出新章节")
	assert.Equal(t, types.SectionSummary, sections[0].Kind)
}

// TestChunkEmptyNamedSection 空的已命名章节应保留
func TestChunkEmptyNamedSection(t *testing.T) {
	chunker, err := NewSectionChunker(ChunkerConfig{})
	require.NoError(t, err)

	sections := chunker.Chunk("Skills\n\nEducation\nStanford University")
	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionSkills, sections[0].Kind)
	assert.Empty(t, sections[0].Body, "空章节正文应为空字符串")
	assert.Equal(t, types.SectionEducation, sections[1].Kind)
}
