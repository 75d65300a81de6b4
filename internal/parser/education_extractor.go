package parser

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/types"
)

var educationTracer = otel.Tracer("parser.education_extractor")

// 学位词表，从高频写法到缩写
var degreeVocabulary = []string{
	"Doctor of Philosophy", "Ph.D.", "PhD", "Doctorate",
	"Master of Business Administration", "M.B.A", "MBA",
	"Master of Science", "M.Sc", "M.S.", "M.A.", "M.Eng", "M.Tech", "Master",
	"Bachelor of Science", "B.Sc", "B.S.", "B.A.", "B.Eng", "B.Tech", "Bachelor",
	"Associate", "A.S.", "A.A.",
	"Diploma", "Certificate",
	"博士", "硕士", "学士", "本科", "大专",
}

// 专业领域词表
var fieldVocabulary = []string{
	"Computer Science", "Computer Engineering", "Software Engineering",
	"Information Technology", "Data Science", "Machine Learning",
	"Electrical Engineering", "Business Administration", "Economics",
	"Mathematics", "Statistics", "Physics",
	"计算机科学与技术", "软件工程", "计算机科学", "信息管理",
}

// 荣誉模式
var honorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(Summa Cum Laude)`),
	regexp.MustCompile(`(?i)(Magna Cum Laude)`),
	regexp.MustCompile(`(?i)(Cum Laude)`),
	regexp.MustCompile(`(?i)(Dean's List)`),
	regexp.MustCompile(`(?i)(Honor Roll)`),
	regexp.MustCompile(`(?i)(Phi Beta Kappa)`),
	regexp.MustCompile(`(国家奖学金|一等奖学金|优秀毕业生)`),
}

// 学校名模式
var institutionRegex = regexp.MustCompile(
	`(?i)([A-Z][\pL&.' -]{1,60}(?:University|College|Institute|Polytechnic|Academy)(?: of [\pL ]{2,40})?|` +
		`(?:University|Institute) of [\pL ]{2,40}|[\p{Han}]{2,20}(?:大学|学院))`)

// GPA写法: "GPA: 3.8" 或 "GPA 3.8/4.0"
var gpaRegex = regexp.MustCompile(`(?i)GPA[:\s]*([0-9]+(?:\.[0-9]+)?)(?:\s*/\s*([0-9]+(?:\.[0-9]+)?))?`)

// 四位年份
var yearRegex = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// 教育相关关键词
var educationKeywordRegex = regexp.MustCompile(`(?i)\b(education|university|college|degree)\b|大学|学院|学历`)

// 纯汉字词条
var hanOnlyRegex = regexp.MustCompile(`^[\p{Han}]+$`)

// EducationExtractor 教育经历提取器
type EducationExtractor struct {
	gpaScale float64 // GPA量程上限，超出 (0, 上限] 的值一律丢弃
	logger   zerolog.Logger
}

// EducationExtractorOption 配置选项
type EducationExtractorOption func(*EducationExtractor)

// WithGPAScale 配置GPA量程上限
func WithGPAScale(scale float64) EducationExtractorOption {
	return func(e *EducationExtractor) {
		if scale > 0 {
			e.gpaScale = scale
		}
	}
}

// NewEducationExtractor 创建教育经历提取器
func NewEducationExtractor(opts ...EducationExtractorOption) *EducationExtractor {
	e := &EducationExtractor{
		gpaScale: 4.0,
		logger:   logger.With("component", "education_extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 提取教育经历条目
// 输出按结束时间降序排列；无法解析日期的条目排在最后并保持文档顺序
func (e *EducationExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.EducationEntry, error) {
	_, span := educationTracer.Start(ctx, "EducationExtractor.Extract")
	defer span.End()

	body := text.BodyOfKind(types.SectionEducation)
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	blocks := segmentEducationBlocks(body)
	entries := make([]types.EducationEntry, 0, len(blocks))
	for _, block := range blocks {
		if entry, ok := e.parseEntry(block); ok {
			entries = append(entries, entry)
		}
	}

	// 结束时间降序；未注明日期的条目排在最后，相互之间保持文档顺序
	sort.SliceStable(entries, func(i, j int) bool {
		ei, ej := entries[i].End, entries[j].End
		if ei == nil {
			return false
		}
		if ej == nil {
			return true
		}
		return ei.After(*ej)
	})

	span.SetAttributes(attribute.Int("education.entry_count", len(entries)))
	e.logger.Debug().Int("entry_count", len(entries)).Msg("教育经历提取完成")
	return entries, nil
}

// segmentEducationBlocks 按学校行切分条目块
// 每个命中学校名模式的行开启一个新块；无学校行时整体作为单独一块
func segmentEducationBlocks(body string) []string {
	lines := strings.Split(body, "\n")

	var blocks []string
	var current []string
	started := false

	for _, line := range lines {
		if institutionRegex.MatchString(line) {
			if started {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			started = true
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

// parseEntry 解析单个条目块
// 学校和学位都缺失时视为噪声块丢弃
func (e *EducationExtractor) parseEntry(block string) (types.EducationEntry, bool) {
	if strings.TrimSpace(block) == "" {
		return types.EducationEntry{}, false
	}

	var entry types.EducationEntry

	if m := institutionRegex.FindStringSubmatch(block); m != nil {
		entry.Institution = strings.TrimSpace(m[1])
	}

	// 学位：按词表顺序取第一个命中项
	for _, degree := range degreeVocabulary {
		if containsWord(block, degree) {
			entry.Degree = degree
			break
		}
	}

	// 专业领域
	for _, field := range fieldVocabulary {
		if containsWord(block, field) {
			entry.Field = field
			break
		}
	}

	if entry.Institution == "" && entry.Degree == "" {
		return types.EducationEntry{}, false
	}

	// 起止时间：优先日期区间，退回到年份对
	if r, ok := FindDateRange(block); ok {
		entry.Start = r.Start
		entry.End = r.End
		if r.Current {
			entry.End = nil
		}
	} else {
		years := yearRegex.FindAllString(block, -1)
		if len(years) >= 2 {
			entry.Start = yearStart(years[0])
			entry.End = yearEnd(years[1])
		} else if len(years) == 1 {
			// 单个年份按毕业年份处理
			entry.End = yearEnd(years[0])
		}
	}

	entry.GPA = e.parseGPA(block)
	entry.Honors = parseHonors(block)
	entry.Confidence = educationConfidence(block)
	return entry, true
}

// parseGPA 解析并校验GPA
// 写成 "3.8/5.0" 时以斜杠后的量程为准；超出量程的值丢弃为nil
func (e *EducationExtractor) parseGPA(block string) *float64 {
	m := gpaRegex.FindStringSubmatch(block)
	if m == nil {
		return nil
	}
	gpa, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	scale := e.gpaScale
	if m[2] != "" {
		if s, err := strconv.ParseFloat(m[2], 64); err == nil && s > 0 {
			scale = s
		}
	}
	if gpa < 0 || gpa > scale {
		return nil
	}
	return &gpa
}

// parseHonors 收集荣誉，按模式顺序去重
func parseHonors(block string) []string {
	var honors []string
	seen := make(map[string]bool)
	for _, pattern := range honorPatterns {
		for _, m := range pattern.FindAllStringSubmatch(block, -1) {
			honor := m[1]
			key := strings.ToLower(honor)
			if !seen[key] {
				seen[key] = true
				honors = append(honors, honor)
			}
		}
	}
	return honors
}

// educationConfidence 条目置信度
func educationConfidence(block string) float64 {
	confidence := 0.5
	if educationKeywordRegex.MatchString(block) {
		confidence += 0.3
	}
	if yearRegex.MatchString(block) {
		confidence += 0.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// containsWord 大小写不敏感的词边界匹配
// 纯汉字词条不做边界检查（中文没有词边界）
func containsWord(text, word string) bool {
	if hanOnlyRegex.MatchString(word) {
		return strings.Contains(text, word)
	}
	pattern := `(?i)(^|[^\pL])` + regexp.QuoteMeta(word) + `($|[^\pL])`
	matched, _ := regexp.MatchString(pattern, text)
	return matched
}

func yearStart(year string) *time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func yearEnd(year string) *time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	t := time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	return &t
}
