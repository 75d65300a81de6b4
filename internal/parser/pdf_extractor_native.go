package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"resume-engine-go/internal/types"
)

// NativePDFExtractor 基于纯Go的PDF文本提取方法
// 不依赖外部进程，作为PDF格式的首选方法；扫描版或复杂排版的PDF
// 可能提取不出有效文本，此时由方法链回退到eino提取器
type NativePDFExtractor struct{}

// NewNativePDFExtractor 创建纯Go PDF提取方法
func NewNativePDFExtractor() *NativePDFExtractor {
	return &NativePDFExtractor{}
}

// Name 方法名
func (e *NativePDFExtractor) Name() string {
	return "pdf-native"
}

// Supports 仅支持PDF格式
func (e *NativePDFExtractor) Supports(format types.DocumentFormat) bool {
	return format == types.FormatPDF
}

// Extract 逐页提取纯文本，页与页之间以空行分隔
func (e *NativePDFExtractor) Extract(ctx context.Context, doc *types.RawDocument) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", 0, fmt.Errorf("打开PDF失败: %w", err)
	}

	pageCount := reader.NumPage()
	var sb strings.Builder

	for i := 1; i <= pageCount; i++ {
		// 尊重上游的超时取消
		select {
		case <-ctx.Done():
			return "", pageCount, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页失败不致命，继续处理后续页
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", pageCount, fmt.Errorf("%w: PDF无可提取文本", ErrEmptyDocument)
	}
	return text, pageCount, nil
}
