package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"resume-engine-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/tracing"
)

var extractorTracer = otel.Tracer("parser.text_extractor")

// ExtractMethod 单个文本提取方法
// 每种文档格式可以注册多个方法，按优先级依次尝试
type ExtractMethod interface {
	// Name 方法名，写入NormalizedText.Method
	Name() string
	// Supports 是否支持给定格式
	Supports(format types.DocumentFormat) bool
	// Extract 提取文本，返回原始文本和页数（非PDF为0）
	Extract(ctx context.Context, doc *types.RawDocument) (string, int, error)
}

// TextExtractor 文本提取编排器
// 按注册顺序尝试各提取方法，第一个产出可接受文本的方法胜出；
// 全部失败时返回包装了各方法失败详情的 ErrExtractionFailed
type TextExtractor struct {
	methods []ExtractMethod
	chunker *SectionChunker

	minTextLength     int     // 低于该长度视为提取失败
	minPrintableRatio float64 // 可打印字符占比下限

	logger zerolog.Logger
}

// TextExtractorOption 提取器配置选项
type TextExtractorOption func(*TextExtractor)

// WithMethods 替换提取方法列表（按优先级排序）
func WithMethods(methods ...ExtractMethod) TextExtractorOption {
	return func(e *TextExtractor) {
		e.methods = methods
	}
}

// WithMinTextLength 配置最低接受长度
func WithMinTextLength(n int) TextExtractorOption {
	return func(e *TextExtractor) {
		if n > 0 {
			e.minTextLength = n
		}
	}
}

// WithMinPrintableRatio 配置可打印字符占比下限
func WithMinPrintableRatio(r float64) TextExtractorOption {
	return func(e *TextExtractor) {
		if r > 0 && r <= 1 {
			e.minPrintableRatio = r
		}
	}
}

// WithChunker 配置章节分块器
func WithChunker(c *SectionChunker) TextExtractorOption {
	return func(e *TextExtractor) {
		e.chunker = c
	}
}

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(l zerolog.Logger) TextExtractorOption {
	return func(e *TextExtractor) {
		e.logger = l
	}
}

// NewTextExtractor 创建文本提取编排器
// 默认注册 ledongthuc PDF 提取、eino PDF 提取（兜底）、docx 提取和纯文本直通
func NewTextExtractor(ctx context.Context, opts ...TextExtractorOption) (*TextExtractor, error) {
	chunker, err := NewSectionChunker(ChunkerConfig{})
	if err != nil {
		return nil, fmt.Errorf("创建章节分块器失败: %w", err)
	}

	e := &TextExtractor{
		chunker:           chunker,
		minTextLength:     50,
		minPrintableRatio: 0.85,
		logger:            logger.With("component", "text_extractor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	// 未显式指定方法列表时构建默认方法链
	if e.methods == nil {
		einoExtractor, err := NewEinoPDFExtractor(ctx)
		if err != nil {
			return nil, fmt.Errorf("创建eino PDF提取器失败: %w", err)
		}
		e.methods = []ExtractMethod{
			NewNativePDFExtractor(),
			einoExtractor,
			NewDocxExtractor(),
			NewPlainTextExtractor(),
		}
	}

	return e, nil
}

// MethodNames 按优先级返回已注册的提取方法名
func (e *TextExtractor) MethodNames() []string {
	names := make([]string, 0, len(e.methods))
	for _, m := range e.methods {
		names = append(names, m.Name())
	}
	return names
}

// Extract 执行文本提取阶段：方法链尝试 -> 清洗 -> 可接受性校验 -> 章节分块
func (e *TextExtractor) Extract(ctx context.Context, doc *types.RawDocument) (*types.NormalizedText, error) {
	ctx, span := extractorTracer.Start(ctx, "TextExtractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.format", string(doc.Format)),
		attribute.Int("document.size", len(doc.Data)),
	)

	if len(doc.Data) == 0 {
		tracing.RecordError(span, ErrEmptyDocument, tracing.ErrorTypeExtraction)
		return nil, ErrEmptyDocument
	}

	var attemptErrs []string
	supported := false

	for _, method := range e.methods {
		if !method.Supports(doc.Format) {
			continue
		}
		supported = true

		raw, pages, err := method.Extract(ctx, doc)
		if err != nil {
			e.logger.Warn().
				Str("method", method.Name()).
				Str("format", string(doc.Format)).
				Err(err).
				Msg("提取方法失败，尝试下一个")
			attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", method.Name(), err))
			continue
		}

		cleaned := CleanText(raw)
		if err := e.acceptable(cleaned, doc.Format); err != nil {
			e.logger.Warn().
				Str("method", method.Name()).
				Int("text_length", len(cleaned)).
				Err(err).
				Msg("提取结果不可接受，尝试下一个")
			attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", method.Name(), err))
			continue
		}

		sections := e.chunker.Chunk(cleaned)
		e.logger.Info().
			Str("method", method.Name()).
			Int("text_length", len(cleaned)).
			Int("section_count", len(sections)).
			Msg("文本提取成功")
		span.SetAttributes(
			attribute.String("extraction.method", method.Name()),
			attribute.Int("extraction.text_length", len(cleaned)),
		)

		return &types.NormalizedText{
			Sections: sections,
			FullText: cleaned,
			Method:   method.Name(),
			PageInfo: pages,
		}, nil
	}

	if !supported {
		err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.Format)
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, err
	}

	err := fmt.Errorf("%w: %s", ErrExtractionFailed, strings.Join(attemptErrs, "; "))
	tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
	return nil, err
}

// acceptable 校验清洗后的文本是否可接受
// 长度下限和乱码占比针对的是文件解析产出的退化文本；
// 纯文本输入是调用方给出的原文，只要求非空。
func (e *TextExtractor) acceptable(text string, format types.DocumentFormat) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyDocument
	}
	if format == types.FormatPlainText {
		return nil
	}
	if len([]rune(trimmed)) < e.minTextLength {
		return fmt.Errorf("%w: %d字符，低于下限%d", ErrTextTooShort, len([]rune(trimmed)), e.minTextLength)
	}
	if ratio := printableRatio(trimmed); ratio < e.minPrintableRatio {
		return fmt.Errorf("%w: 可打印占比%.2f，低于下限%.2f", ErrGarbledText, ratio, e.minPrintableRatio)
	}
	return nil
}

// printableRatio 计算可打印字符（含空白）占比
func printableRatio(s string) float64 {
	total := 0
	printable := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}

// CleanText 清洗原始提取文本
// 统一换行符、剔除控制字符、压缩连续空白，保留段落结构
func CleanText(raw string) string {
	// 统一化换行符
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		// 剔除不可见控制字符
		line = strings.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, line)
		// 压缩连续空格
		for strings.Contains(line, "  ") {
			line = strings.ReplaceAll(line, "  ", " ")
		}
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")

	// 移除多余空行
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}
