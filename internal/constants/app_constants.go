package constants

const (
	// DefaultParserVersion 解析器版本，写入每次解析的元数据
	DefaultParserVersion = "1.0"

	// 简历提交的处理状态
	StatusUploaded         = "UPLOADED"          // 已上传，等待入队
	StatusQueuedForParse   = "QUEUED_FOR_PARSE"  // 已入队，等待解析
	StatusParsing          = "PARSING"           // 流水线处理中
	StatusCompleted        = "COMPLETED"         // 解析完成
	StatusFailed           = "FAILED"            // 解析失败
	StatusDuplicateSkipped = "DUPLICATE_SKIPPED" // 文件MD5重复，跳过处理

	// RabbitMQ 拓扑
	ResumeEventsExchange = "resume.events"  // 简历事件交换机 (direct)
	ResumeUploadQueue    = "resume.upload"  // 上传解析队列
	ResumeUploadRouteKey = "resume.upload"  // 上传消息路由键
	ResumeParsedRouteKey = "resume.parsed"  // 解析结果事件路由键
	ResumeDLXExchange    = "resume.events.dlx"
)
