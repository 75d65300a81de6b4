package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

// TestCleanText 验证文本清洗的各项规则
func TestCleanText(t *testing.T) {
	t.Run("统一换行符", func(t *testing.T) {
		assert.Equal(t, "a\nb\nc", CleanText("a\r\nb\rc"))
	})

	t.Run("压缩连续空格和制表符", func(t *testing.T) {
		assert.Equal(t, "a b c", CleanText("a\t b    c"))
	})

	t.Run("剔除控制字符", func(t *testing.T) {
		assert.Equal(t, "ab", CleanText("a\x00\x1bb"))
	})

	t.Run("压缩多余空行", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", CleanText("a\n\n\n\n\nb"))
	})

	t.Run("去除行尾空格", func(t *testing.T) {
		assert.Equal(t, "a\nb", CleanText("a   \nb"))
	})
}

// TestTextExtractorPlainText 纯文本提取走完整流程
func TestTextExtractorPlainText(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(NewPlainTextExtractor()),
		WithMinTextLength(10),
	)
	require.NoError(t, err, "创建文本提取器失败")

	doc := &types.RawDocument{
		Data:     []byte(sampleResumeText),
		Format:   types.FormatPlainText,
		FileName: "resume.txt",
	}

	text, err := extractor.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, text)

	assert.Equal(t, "plain-text", text.Method, "应记录实际使用的方法名")
	assert.NotEmpty(t, text.Sections, "提取结果应完成章节分块")
	assert.NotNil(t, text.SectionOfKind(types.SectionSkills), "应切分出技能章节")
}

// TestTextExtractorUnsupportedFormat 无方法支持的格式应返回哨兵错误
func TestTextExtractorUnsupportedFormat(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(NewPlainTextExtractor()),
	)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), &types.RawDocument{
		Data:   []byte("%PDF-1.4 ..."),
		Format: types.FormatPDF,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// TestTextExtractorEmptyDocument 空文档直接拒绝
func TestTextExtractorEmptyDocument(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(NewPlainTextExtractor()),
	)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), &types.RawDocument{
		Data:   nil,
		Format: types.FormatPlainText,
	})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

// fixedOutputMethod 返回固定文本的提取方法，模拟文件解析产出
type fixedOutputMethod struct {
	format types.DocumentFormat
	text   string
}

func (m fixedOutputMethod) Name() string { return "fixed" }

func (m fixedOutputMethod) Supports(format types.DocumentFormat) bool {
	return format == m.format
}

func (m fixedOutputMethod) Extract(ctx context.Context, doc *types.RawDocument) (string, int, error) {
	return m.text, 1, nil
}

// TestTextExtractorTooShort 文件解析产出低于长度下限时不可接受
func TestTextExtractorTooShort(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(fixedOutputMethod{format: types.FormatPDF, text: "too short"}),
		WithMinTextLength(50),
	)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), &types.RawDocument{
		Data:   []byte("%PDF-1.4 ..."),
		Format: types.FormatPDF,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed, "全部方法的结果不可接受时应返回提取失败")
}

// TestTextExtractorShortPlainTextAccepted 纯文本输入不做长度下限校验
func TestTextExtractorShortPlainTextAccepted(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(NewPlainTextExtractor()),
		WithMinTextLength(50),
	)
	require.NoError(t, err)

	text, err := extractor.Extract(context.Background(), &types.RawDocument{
		Data:   []byte("Skills: Python, Java, Python"),
		Format: types.FormatPlainText,
	})
	require.NoError(t, err, "短纯文本是调用方的原文，不应被长度下限拦截")
	assert.Equal(t, "Skills: Python, Java, Python", text.FullText)
}

// TestTextExtractorInvalidUTF8 非法编码的纯文本应被拒绝
func TestTextExtractorInvalidUTF8(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(),
		WithMethods(NewPlainTextExtractor()),
		WithMinTextLength(1),
	)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), &types.RawDocument{
		Data:   []byte{0xff, 0xfe, 0xfd},
		Format: types.FormatPlainText,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

// TestPrintableRatio 可打印占比计算
func TestPrintableRatio(t *testing.T) {
	assert.InDelta(t, 1.0, printableRatio("hello world 你好"), 1e-9)
	assert.Less(t, printableRatio("ab\x00\x01\x02\x03"), 0.5, "控制字符应拉低占比")
}
