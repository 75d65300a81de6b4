package parser

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"resume-engine-go/internal/types"
)

// docx正文是WordprocessingML片段，提取后需要剥离XML标签还原为纯文本
var (
	docxParagraphEndRegex = regexp.MustCompile(`</w:p>`)
	docxBreakRegex        = regexp.MustCompile(`<w:(br|tab)[^>]*/>`)
	docxTagRegex          = regexp.MustCompile(`<[^>]+>`)
)

// DocxExtractor Word文档(docx)文本提取方法
type DocxExtractor struct{}

// NewDocxExtractor 创建docx提取方法
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

// Name 方法名
func (e *DocxExtractor) Name() string {
	return "docx"
}

// Supports 仅支持docx格式
func (e *DocxExtractor) Supports(format types.DocumentFormat) bool {
	return format == types.FormatDocx
}

// Extract 读取docx内容并剥离XML标记
func (e *DocxExtractor) Extract(ctx context.Context, doc *types.RawDocument) (string, int, error) {
	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", 0, fmt.Errorf("打开docx失败: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()
	text := stripDocxMarkup(content)
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("%w: docx无可提取文本", ErrEmptyDocument)
	}
	return text, 0, nil
}

// stripDocxMarkup 将WordprocessingML片段转换为纯文本
// 段落结束和换行标记转换为换行符，其余标签全部剥离
func stripDocxMarkup(content string) string {
	text := docxParagraphEndRegex.ReplaceAllString(content, "\n")
	text = docxBreakRegex.ReplaceAllString(text, "\n")
	text = docxTagRegex.ReplaceAllString(text, "")

	// 还原常见的XML实体
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(text)
}
