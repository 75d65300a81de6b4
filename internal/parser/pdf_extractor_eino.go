package parser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/types"
)

// EinoPDFExtractor 使用 Eino PDF Parser 提取文本的兜底方法
// 对 pdf-native 处理不了的文档（加密字典、非标准字体映射）往往能产出文本
type EinoPDFExtractor struct {
	parser *pdf.PDFParser
	logger zerolog.Logger

	timeout time.Duration
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(l zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFExtractor) {
		e.logger = l
	}
}

// WithEinoTimeout 配置单次解析超时
func WithEinoTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFExtractor 初始化 Eino PDF 文本提取器
// 配置为不按页面分割，以获取整个文档的连续文本
func NewEinoPDFExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 重要：获取整个PDF的文本作为单个字符串
	})
	if err != nil {
		return nil, fmt.Errorf("创建eino PDF解析器失败: %w", err)
	}

	extractor := &EinoPDFExtractor{
		parser:  p,
		logger:  logger.With("component", "pdf_extractor_eino"),
		timeout: 30 * time.Second,
	}

	// 应用选项
	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// Name 方法名
func (e *EinoPDFExtractor) Name() string {
	return "pdf-eino"
}

// Supports 仅支持PDF格式
func (e *EinoPDFExtractor) Supports(format types.DocumentFormat) bool {
	return format == types.FormatPDF
}

// Extract 从字节内容中提取完整的纯文本
func (e *EinoPDFExtractor) Extract(ctx context.Context, doc *types.RawDocument) (string, int, error) {
	startTime := time.Now()
	e.logger.Debug().Str("file_name", doc.FileName).Int("size", len(doc.Data)).Msg("开始eino PDF提取")

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	extraMeta := map[string]interface{}{
		"source_file_name": doc.FileName,
		"extraction_time":  time.Now().Format(time.RFC3339),
	}

	docs, err := e.parser.Parse(ctx, bytes.NewReader(doc.Data),
		einoParser.WithURI(doc.FileName),
		einoParser.WithExtraMeta(extraMeta),
	)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Warn().Err(err).Dur("duration", duration).Msg("eino PDF提取失败")
		return "", 0, fmt.Errorf("eino PDF解析失败: %w", err)
	}

	if len(docs) == 0 {
		return "", 0, fmt.Errorf("%w: eino解析无结果", ErrEmptyDocument)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var fullContent string
	for i, d := range docs {
		fullContent += d.Content
		if i < len(docs)-1 {
			fullContent += "\n\n"
		}
	}

	e.logger.Debug().
		Int("text_length", len(fullContent)).
		Dur("duration", duration).
		Msg("eino PDF提取完成")
	return fullContent, len(docs), nil
}
