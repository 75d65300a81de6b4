package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交/快照表
// 每次上传对应一条记录，解析完成后回填分析结果与质量评分。
type ResumeSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(100)"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	ParsedTextMD5       string    `gorm:"type:char(32);index:idx_rs_parsed_text_md5"`

	// AnalysisJSON 存放完整的解析结果 (types.ParsedResume 的JSON序列化)
	AnalysisJSON datatypes.JSON `gorm:"type:json"`

	// 质量评估的冗余列，便于不反序列化JSON直接筛选排序
	QualityScore *float64 `gorm:"type:float;index:idx_rs_quality_score"`
	QualityGrade string   `gorm:"type:char(1)"`

	ProcessingStatus string    `gorm:"type:varchar(50);default:'UPLOADED';index:idx_rs_processing_status"`
	ParserVersion    string    `gorm:"type:varchar(50)"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// ResumeSection 简历分节文本表
// 文本提取阶段切出的每个章节落一条记录，供后续检索与排查。
type ResumeSection struct {
	SectionDBID    uint64 `gorm:"primaryKey;autoIncrement"`
	SubmissionUUID string `gorm:"type:char(36);not null;index:idx_rsec_submission_uuid;uniqueIndex:idx_rsec_submission_ordinal,priority:1"`
	SectionOrdinal int    `gorm:"not null;uniqueIndex:idx_rsec_submission_ordinal,priority:2"`
	SectionKind    string `gorm:"type:varchar(50);not null;index:idx_rsec_section_kind"`
	SectionTitle   string `gorm:"type:text"`
	SectionText    string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ResumeSection) TableName() string {
	return "resume_sections"
}

// StructToJSON 将任意可序列化结构体转换为 datatypes.JSON
func StructToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
