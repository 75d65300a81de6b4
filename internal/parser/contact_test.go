package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resume-engine-go/internal/types"
)

// TestExtractContact 从头部块提取联系方式
func TestExtractContact(t *testing.T) {
	header := "John Smith\njohn.smith@example.com\n+1 555-123-4567\ngithub.com/johnsmith\nlinkedin.com/in/johnsmith"
	text := &types.NormalizedText{
		FullText: header + "\n\nExperience\n...",
		Sections: []types.Section{
			{Kind: types.SectionUnknown, Ordinal: 0, Body: header},
			{Kind: types.SectionExperience, Ordinal: 1, Body: "..."},
		},
	}

	contact := ExtractContact(text)
	assert.Equal(t, "John Smith", contact.Name)
	assert.Equal(t, "john.smith@example.com", contact.Email)
	assert.Equal(t, "+1 555-123-4567", contact.Phone)
	assert.Equal(t, "github.com/johnsmith", contact.GitHub)
	assert.Equal(t, "linkedin.com/in/johnsmith", contact.LinkedIn)
	assert.False(t, contact.Empty())
}

// TestExtractContactChinese 中文姓名和手机号
func TestExtractContactChinese(t *testing.T) {
	header := "张伟\n13812345678\nzhangwei@example.com"
	text := &types.NormalizedText{
		FullText: header,
		Sections: []types.Section{
			{Kind: types.SectionUnknown, Ordinal: 0, Body: header},
		},
	}

	contact := ExtractContact(text)
	assert.Equal(t, "张伟", contact.Name)
	assert.Equal(t, "13812345678", contact.Phone)
	assert.Equal(t, "zhangwei@example.com", contact.Email)
}

// TestExtractContactFallback 没有头部块时退回全文前几行
func TestExtractContactFallback(t *testing.T) {
	text := &types.NormalizedText{
		FullText: "Jane Doe\njane@example.com\nmore content follows here",
		Sections: []types.Section{
			{Kind: types.SectionSummary, Ordinal: 0, Body: "..."},
		},
	}

	contact := ExtractContact(text)
	assert.Equal(t, "Jane Doe", contact.Name)
	assert.Equal(t, "jane@example.com", contact.Email)
}

// TestExtractContactEmpty 正文中没有联系方式时返回空值
func TestExtractContactEmpty(t *testing.T) {
	text := &types.NormalizedText{
		FullText: "nothing useful in this document at all",
		Sections: []types.Section{
			{Kind: types.SectionUnknown, Ordinal: 0, Body: "nothing useful in this document at all"},
		},
	}

	contact := ExtractContact(text)
	assert.True(t, contact.Empty(), "无联系方式时应为空")
}
