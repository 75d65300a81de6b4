package parser

import "errors"

// 解析层的哨兵错误，供上层通过 errors.Is 判断失败类别
var (
	// ErrUnsupportedFormat 文档格式不受支持
	ErrUnsupportedFormat = errors.New("不支持的文档格式")

	// ErrExtractionFailed 所有提取方法都失败
	ErrExtractionFailed = errors.New("文本提取失败")

	// ErrEmptyDocument 文档为空或提取结果为空
	ErrEmptyDocument = errors.New("文档内容为空")

	// ErrTextTooShort 提取文本低于最低接受长度
	ErrTextTooShort = errors.New("提取文本过短")

	// ErrGarbledText 提取文本疑似乱码
	ErrGarbledText = errors.New("提取文本疑似乱码")
)
