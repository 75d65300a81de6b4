package storage

import "time"

// ResumeUploadMessage 简历上传消息
// 上传接口写库成功后发布，解析工作者消费。
type ResumeUploadMessage struct {
	// 与数据库表字段一致的主要字段
	SubmissionUUID      string    `json:"submission_uuid"`          // 提交UUID，主键
	SubmissionTimestamp time.Time `json:"submission_timestamp"`     // 提交时间戳
	SourceChannel       string    `json:"source_channel,omitempty"` // 来源渠道
	OriginalFilename    string    `json:"original_filename"`        // 原始文件名
	OriginalFilePathOSS string    `json:"original_file_path_oss"`   // MinIO中的对象路径
	RawFileMD5          string    `json:"raw_file_md5,omitempty"`   // 原始文件的MD5，用于失败时回滚
}

// ResumeParsedEvent 解析完成事件
// 解析工作者处理结束后发布，无论成功失败都会发出，供下游订阅。
type ResumeParsedEvent struct {
	SubmissionUUID    string  `json:"submission_uuid"`
	ProcessingStatus  string  `json:"processing_status"`             // COMPLETED / FAILED / DUPLICATE_SKIPPED
	ParsedTextPathOSS string  `json:"parsed_text_path_oss,omitempty"` // 解析文本在MinIO中的路径
	QualityScore      float64 `json:"quality_score,omitempty"`
	QualityGrade      string  `json:"quality_grade,omitempty"`
	ProcessedAt       int64   `json:"processed_at"` // Unix时间戳
	Error             string  `json:"error,omitempty"`
}
