package parser

import (
	"fmt"
	"regexp"
	"strings"

	"resume-engine-go/internal/types"
)

// ChunkerConfig 章节分块器的配置
type ChunkerConfig struct {
	// 自定义章节标题正则表达式映射，覆盖同名内置模式
	// 例如 {"EDUCATION": `(?i)^\s*(教育|学历|教育背景)\s*[:：]?\s*$`}
	CustomSectionRegexMap map[string]string
}

// 章节分类的固定尝试顺序，避免map遍历带来的非确定性
var sectionKindOrder = []types.SectionKind{
	types.SectionContact,
	types.SectionSummary,
	types.SectionExperience,
	types.SectionEducation,
	types.SectionSkills,
	types.SectionProjects,
	types.SectionCertifications,
	types.SectionLanguages,
	types.SectionInterests,
}

// SectionChunker 规则驱动的简历章节分块器
// 逐行扫描文本，命中标题模式的行开启新章节；标题行之间的内容归属前一个章节；
// 首个标题之前的内容作为UNKNOWN头部块保留（联系方式通常在这里）
type SectionChunker struct {
	config ChunkerConfig

	// 编译好的章节标题正则表达式
	sectionRegexMap map[types.SectionKind]*regexp.Regexp
}

// NewSectionChunker 创建章节分块器
func NewSectionChunker(config ChunkerConfig) (*SectionChunker, error) {
	chunker := &SectionChunker{
		config:          config,
		sectionRegexMap: make(map[types.SectionKind]*regexp.Regexp),
	}

	// 默认的章节标题正则表达式，英文简历和中文简历都覆盖
	// 标题行通常独占一行，锚定整行匹配以避免把正文句子误判为标题
	defaultSectionRegexMap := map[types.SectionKind]string{
		types.SectionContact:        `(?i)^\s*(contact( information)?|联系方式)\s*[:：]?\s*$`,
		types.SectionSummary:        `(?i)^\s*((professional )?summary|objective|profile|about( me)?|自我评价|个人简介|自我介绍|个人总结)\s*[:：]?\s*$`,
		types.SectionExperience:     `(?i)^\s*((work|professional|employment) (experience|history)|experience|工作经[历验]|实习经[历验]|工作履历)\s*[:：]?\s*$`,
		types.SectionEducation:      `(?i)^\s*(education( background)?|academic background|教育经历|教育背景|学历背景|学历)\s*[:：]?\s*$`,
		types.SectionSkills:         `(?i)^\s*((technical |core )?skills|technologies|core competencies|专业技能|技能|技术栈|核心能力)\s*[:：]?\s*$`,
		types.SectionProjects:       `(?i)^\s*((personal |side )?projects|项目经[历验]|项目描述)\s*[:：]?\s*$`,
		types.SectionCertifications: `(?i)^\s*(certifications?|licenses( and certifications)?|证书|资格证书)\s*[:：]?\s*$`,
		types.SectionLanguages:      `(?i)^\s*(languages|语言能力)\s*[:：]?\s*$`,
		types.SectionInterests:      `(?i)^\s*(interests|hobbies|兴趣爱好)\s*[:：]?\s*$`,
	}

	// 合并自定义正则
	if config.CustomSectionRegexMap != nil {
		for kind, pattern := range config.CustomSectionRegexMap {
			defaultSectionRegexMap[types.SectionKind(kind)] = pattern
		}
	}

	// 编译正则表达式
	for kind, pattern := range defaultSectionRegexMap {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("编译章节正则表达式错误 %s: %w", kind, err)
		}
		chunker.sectionRegexMap[kind] = regex
	}

	return chunker, nil
}

// Chunk 将清洗后的文本切分为章节序列
// 产出的章节序号从0开始严格递增，且反映文档顺序
func (c *SectionChunker) Chunk(text string) []types.Section {
	lines := strings.Split(text, "\n")

	var sections []types.Section
	ordinal := 0

	// 当前章节，首个标题之前的内容归为UNKNOWN头部块
	current := types.Section{Kind: types.SectionUnknown, Ordinal: ordinal}
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		// 空的UNKNOWN块丢弃，空的已命名章节保留（标题存在即有信息量）
		if content == "" && current.Kind == types.SectionUnknown {
			return
		}
		current.Body = content
		current.Ordinal = ordinal
		sections = append(sections, current)
		ordinal++
	}

	for _, line := range lines {
		kind := c.classifyLine(line)
		if kind != types.SectionUnknown {
			// 命中标题行，结束当前章节并开启新章节
			flush()
			current = types.Section{Kind: kind, Title: strings.TrimSpace(line)}
			body.Reset()
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// classifyLine 检测行是否为章节标题，返回对应类型
func (c *SectionChunker) classifyLine(line string) types.SectionKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return types.SectionUnknown
	}
	// 标题行不会太长
	if len([]rune(trimmed)) > 40 {
		return types.SectionUnknown
	}

	for _, kind := range sectionKindOrder {
		if c.sectionRegexMap[kind].MatchString(trimmed) {
			return kind
		}
	}
	return types.SectionUnknown
}
