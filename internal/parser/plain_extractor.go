package parser

import (
	"context"
	"fmt"
	"unicode/utf8"

	"resume-engine-go/internal/types"
)

// PlainTextExtractor 纯文本直通方法
type PlainTextExtractor struct{}

// NewPlainTextExtractor 创建纯文本直通方法
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// Name 方法名
func (e *PlainTextExtractor) Name() string {
	return "plain-text"
}

// Supports 仅支持纯文本格式
func (e *PlainTextExtractor) Supports(format types.DocumentFormat) bool {
	return format == types.FormatPlainText
}

// Extract 校验UTF-8后原样返回
func (e *PlainTextExtractor) Extract(ctx context.Context, doc *types.RawDocument) (string, int, error) {
	if !utf8.Valid(doc.Data) {
		return "", 0, fmt.Errorf("%w: 非法的UTF-8编码", ErrGarbledText)
	}
	return string(doc.Data), 0, nil
}
