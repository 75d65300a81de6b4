package types

import "time"

// DocumentFormat 表示原始简历文档的格式标签
type DocumentFormat string

const (
	// FormatPDF PDF文档
	FormatPDF DocumentFormat = "pdf"
	// FormatDocx Word文档 (docx)
	FormatDocx DocumentFormat = "docx"
	// FormatPlainText 纯文本
	FormatPlainText DocumentFormat = "plain-text"
)

// RawDocument 原始简历文档：字节内容 + 格式标签
// 由上传/存储层提供，加载后不可变，仅供文本提取器消费
type RawDocument struct {
	Data     []byte         // 文档原始字节
	Format   DocumentFormat // 格式标签
	FileName string         // 原始文件名（可选，仅用于日志和元数据）
}

// SectionKind 表示简历章节类型
type SectionKind string

const (
	// SectionContact 联系方式章节
	SectionContact SectionKind = "CONTACT"
	// SectionSummary 个人简介/求职目标章节
	SectionSummary SectionKind = "SUMMARY"
	// SectionExperience 工作经历章节
	SectionExperience SectionKind = "EXPERIENCE"
	// SectionEducation 教育经历章节
	SectionEducation SectionKind = "EDUCATION"
	// SectionSkills 技能章节
	SectionSkills SectionKind = "SKILLS"
	// SectionProjects 项目经历章节
	SectionProjects SectionKind = "PROJECTS"
	// SectionCertifications 证书章节
	SectionCertifications SectionKind = "CERTIFICATIONS"
	// SectionLanguages 语言能力章节
	SectionLanguages SectionKind = "LANGUAGES"
	// SectionInterests 兴趣爱好章节
	SectionInterests SectionKind = "INTERESTS"
	// SectionUnknown 未分类内容章节
	SectionUnknown SectionKind = "UNKNOWN"
)

// Section 简历章节：标签 + 文档内序号 + 正文
// 序号严格递增且反映文档顺序；未识别区域标记为 UNKNOWN 但正文保留
type Section struct {
	Kind    SectionKind `json:"kind"`    // 章节类型
	Title   string      `json:"title"`   // 实际匹配到的章节标题行（UNKNOWN时为空）
	Ordinal int         `json:"ordinal"` // 文档内序号，从0开始严格递增
	Body    string      `json:"body"`    // 章节正文（不含标题行）
}

// NormalizedText 规范化文本：章节序列 + 全文
// 每份文档只生成一次，生成后不可变，被三个实体提取器共享读取
type NormalizedText struct {
	Sections []Section `json:"sections"`   // 按文档顺序排列的章节
	FullText string    `json:"full_text"`  // 清洗后的完整文本
	Method   string    `json:"method"`     // 实际使用的提取方法名
	PageInfo int       `json:"page_count"` // 页数（仅PDF有意义，其他为0）
}

// SectionOfKind 返回第一个匹配类型的章节，不存在时返回nil
func (n *NormalizedText) SectionOfKind(kind SectionKind) *Section {
	for i := range n.Sections {
		if n.Sections[i].Kind == kind {
			return &n.Sections[i]
		}
	}
	return nil
}

// BodyOfKind 返回所有匹配类型章节的正文拼接，不存在时返回空串
func (n *NormalizedText) BodyOfKind(kind SectionKind) string {
	var body string
	for i := range n.Sections {
		if n.Sections[i].Kind == kind {
			if body != "" {
				body += "\n"
			}
			body += n.Sections[i].Body
		}
	}
	return body
}

// SkillCategory 技能类别
type SkillCategory string

const (
	CategoryProgramming SkillCategory = "programming" // 编程语言
	CategoryFramework   SkillCategory = "framework"   // 框架/库
	CategoryDatabase    SkillCategory = "database"    // 数据库
	CategoryTool        SkillCategory = "tool"        // 工具
	CategorySoftSkill   SkillCategory = "soft-skill"  // 软技能
	CategoryPlatform    SkillCategory = "platform"    // 云平台/基础设施
	CategoryMethodology SkillCategory = "methodology" // 方法论
	CategoryOther       SkillCategory = "other"       // 其他
)

// SourceMethod 候选生成方法
type SourceMethod string

const (
	// MethodModel 学习型序列标注模型
	MethodModel SourceMethod = "model"
	// MethodRule 规则/语法匹配器
	MethodRule SourceMethod = "rule"
	// MethodRegex 正则/词典匹配器
	MethodRegex SourceMethod = "regex"
)

// Span 文本偏移区间 [Start, End)
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExtractedSkill 提取出的技能，去重合并后的最终形态
// 去重时按规范化名称精确匹配（大小写不敏感 + 别名折叠），绝不跨名称模糊合并
type ExtractedSkill struct {
	Name       string        `json:"name"`           // 规范化后的技能名
	Category   SkillCategory `json:"category"`       // 技能类别
	Confidence float64       `json:"confidence"`     // 置信度 [0,1]
	Source     SourceMethod  `json:"source_method"`  // 最终采信的来源方法
	Span       *Span         `json:"span,omitempty"` // 可选的文本偏移
	Methods    int           `json:"methods"`        // 同意该技能的方法数量
}

// ExperienceEntry 一段工作经历
// 不变式：Start和End都存在时 Start <= End
type ExperienceEntry struct {
	Company        string     `json:"company"`            // 公司名
	Title          string     `json:"title"`              // 职位
	Start          *time.Time `json:"start,omitempty"`    // 开始时间，解析失败时为nil
	End            *time.Time `json:"end,omitempty"`      // 结束时间；Current为true时为nil
	Current        bool       `json:"is_current"`         // 是否在职（"present"标记）
	Location       string     `json:"location,omitempty"` // 工作地点
	Achievements   []string   `json:"achievements"`       // 要点列表，保持文档顺序
	Technologies   []string   `json:"technologies"`       // 使用技术集合（规范化名称）
	DurationMonths int        `json:"duration_months"`    // 持续月数；无法计算时为0
	Confidence     float64    `json:"confidence"`         // 字段填充完整度
}

// EducationEntry 一段教育经历
// 不变式：GPA非nil时必然落在配置的合法区间内
type EducationEntry struct {
	Institution string     `json:"institution"`      // 学校/机构
	Degree      string     `json:"degree"`           // 学位，未识别时为空
	Field       string     `json:"field"`            // 专业领域，未识别时为空
	Start       *time.Time `json:"start,omitempty"`  // 入学时间
	End         *time.Time `json:"end,omitempty"`    // 毕业时间
	GPA         *float64   `json:"gpa,omitempty"`    // GPA，超出配置量程时丢弃为nil
	Honors      []string   `json:"honors,omitempty"` // 荣誉（Dean's List等）
	Confidence  float64    `json:"confidence"`       // 置信度
}

// ContactInfo 从简历头部区域捕获的联系方式
type ContactInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Empty 判断是否完全没有捕获到联系方式
func (c ContactInfo) Empty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.GitHub == "" && c.LinkedIn == ""
}

// CriterionName 质量评估维度名
type CriterionName string

const (
	CriterionCompleteness    CriterionName = "completeness"      // 完整性
	CriterionStructure       CriterionName = "structure"         // 结构/排版
	CriterionContentQuality  CriterionName = "content_quality"   // 内容质量
	CriterionATS             CriterionName = "ats_compatibility" // ATS兼容性
	CriterionProfessionalism CriterionName = "professionalism"   // 专业性
)

// QualityAssessment 质量评估结果
// 派生数据：每次评估整体重建，绝不原地修改
type QualityAssessment struct {
	OverallScore    float64                   `json:"overall_score"`    // 加权总分 [0,100]，保留一位小数
	CriterionScores map[CriterionName]float64 `json:"criterion_scores"` // 各维度分数 [0,100]
	Suggestions     []string                  `json:"suggestions"`      // 改进建议，按维度顺序
	Strengths       []string                  `json:"strengths"`        // 简历亮点
	Weaknesses      []string                  `json:"weaknesses"`       // 简历短板
	LetterGrade     string                    `json:"letter_grade"`     // A/B/C/D/F
}

// EntityNote 实体提取器的非致命失败记录
// 附着在ParsedResume上，同时用于质量评估的完整性扣分
type EntityNote struct {
	Extractor string `json:"extractor"` // 提取器名: skills/experience/education
	Message   string `json:"message"`   // 失败描述
}

// PipelineStage 流水线状态机阶段
type PipelineStage string

const (
	StagePending            PipelineStage = "pending"
	StageExtractingText     PipelineStage = "extracting_text"
	StageExtractingEntities PipelineStage = "extracting_entities"
	StageAssessingQuality   PipelineStage = "assessing_quality"
	StageDone               PipelineStage = "done"
	StageFailed             PipelineStage = "failed"
)

// StageTiming 单个阶段的耗时记录
type StageTiming struct {
	Stage      PipelineStage `json:"stage"`
	DurationMS int64         `json:"duration_ms"`
}

// AnalysisMeta 一次解析的元数据
type AnalysisMeta struct {
	ExtractionMethod string        `json:"extraction_method"` // 文本提取方法
	ParserVersion    string        `json:"parser_version"`    // 解析器版本
	ParsedAt         time.Time     `json:"parsed_at"`         // 解析时间
	Timings          []StageTiming `json:"timings"`           // 各阶段耗时
	Partial          bool          `json:"partial"`           // 是否为失败后的尽力而为部分结果
}

// ParsedResume 解析后的简历聚合根
// 由编排器在流水线开始时创建为空，逐阶段填充，成功或失败后即不可变；
// 流水线中途绝不向外部调用方暴露
type ParsedResume struct {
	Text       *NormalizedText     `json:"text"`                 // 规范化文本
	Contact    ContactInfo         `json:"contact"`              // 联系方式
	Skills     []ExtractedSkill    `json:"skills"`               // 去重后的技能集合
	Experience []ExperienceEntry   `json:"experience"`           // 按开始时间降序
	Education  []EducationEntry    `json:"education"`            // 按结束时间降序
	Quality    *QualityAssessment  `json:"quality_assessment"`   // 质量评估
	Notes      []EntityNote        `json:"notes,omitempty"`      // 非致命失败记录
	Stats      *AnalysisStatistics `json:"statistics,omitempty"` // 统计数据
	Meta       AnalysisMeta        `json:"meta"`                 // 解析元数据
}

// SkillStatistics 技能统计
type SkillStatistics struct {
	TotalSkills       int                   `json:"total_skills"`
	ByCategory        map[SkillCategory]int `json:"skills_by_category"`
	ByMethod          map[SourceMethod]int  `json:"extraction_methods"`
	AverageConfidence float64               `json:"average_confidence"`
	TopSkills         []ExtractedSkill      `json:"top_skills"` // 置信度最高的前若干项
}

// ExperienceStatistics 工作经历统计
type ExperienceStatistics struct {
	TotalEntries         int     `json:"total_entries"`
	TotalDurationMonths  int     `json:"total_duration_months"`
	AverageDurationMonth float64 `json:"average_duration_months"`
	CurrentPositions     int     `json:"current_positions"`
}

// EducationStatistics 教育经历统计
type EducationStatistics struct {
	TotalEntries int      `json:"total_entries"`
	Institutions []string `json:"institutions"`
	Degrees      []string `json:"degrees"`
}

// TextStatistics 文本统计
type TextStatistics struct {
	TotalCharacters int `json:"total_characters"`
	WordCount       int `json:"word_count"`
	LineCount       int `json:"line_count"`
	SectionCount    int `json:"section_count"`
}

// AnalysisStatistics 一次解析的完整统计数据
type AnalysisStatistics struct {
	Text         TextStatistics       `json:"text"`
	Skills       SkillStatistics      `json:"skills"`
	Experience   ExperienceStatistics `json:"experience"`
	Education    EducationStatistics  `json:"education"`
	Completeness float64              `json:"parsing_completeness"` // [0,1] 解析完整度
}
