package parser

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/types"
)

var experienceTracer = otel.Tracer("parser.experience_extractor")

// 职位头衔关键词，用于区分头衔行和公司行
var jobTitleKeywords = []string{
	"engineer", "developer", "programmer", "manager", "analyst", "designer",
	"consultant", "architect", "scientist", "intern", "lead", "director",
	"specialist", "administrator", "officer", "coordinator", "head of",
	"工程师", "开发", "经理", "总监", "架构师", "实习", "负责人", "专员",
}

// 公司名后缀模式
var companySuffixRegex = regexp.MustCompile(
	`(?i)([\pL][\pL\pN\s&.]{1,40}?)\s+(?:Inc|Corp|LLC|Ltd|Company|Co|Technologies|Systems|Solutions|Group|Partners|Labs)\.?(?:\s|$|,)`)

// 地点 "City, ST" / "City, Country" / Remote
var locationRegex = regexp.MustCompile(
	`(?:^|[,|(])\s*([A-Z][a-z]+(?: [A-Z][a-z]+)*,\s*(?:[A-Z]{2}|[A-Z][a-z]+)|Remote|远程)\s*(?:[,|)]|$)`)

// 成就要点的前缀符号
var bulletPrefixRegex = regexp.MustCompile(`^\s*[•·\-*–▪]\s+`)

// ExperienceExtractor 工作经历提取器
// 在EXPERIENCE章节内按日期行切分条目，逐条目解析公司、头衔、
// 起止时间、要点和技术集合
type ExperienceExtractor struct {
	taxonomy *Taxonomy
	logger   zerolog.Logger
	now      func() time.Time // 可注入的时钟，在职时长用它计算
}

// ExperienceExtractorOption 配置选项
type ExperienceExtractorOption func(*ExperienceExtractor)

// WithExperienceClock 注入时钟，测试用
func WithExperienceClock(now func() time.Time) ExperienceExtractorOption {
	return func(e *ExperienceExtractor) {
		e.now = now
	}
}

// NewExperienceExtractor 创建工作经历提取器
func NewExperienceExtractor(taxonomy *Taxonomy, opts ...ExperienceExtractorOption) *ExperienceExtractor {
	e := &ExperienceExtractor{
		taxonomy: taxonomy,
		logger:   logger.With("component", "experience_extractor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 提取工作经历条目
// 输出按开始时间降序排列；无法解析日期的条目排在最后并保持文档顺序
func (e *ExperienceExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExperienceEntry, error) {
	_, span := experienceTracer.Start(ctx, "ExperienceExtractor.Extract")
	defer span.End()

	body := text.BodyOfKind(types.SectionExperience)
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	blocks := segmentDatedBlocks(body)
	entries := make([]types.ExperienceEntry, 0, len(blocks))
	for _, block := range blocks {
		if entry, ok := e.parseEntry(block); ok {
			entries = append(entries, entry)
		}
	}

	// 开始时间降序；未注明日期的条目排在最后，相互之间保持文档顺序
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].Start, entries[j].Start
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return si.After(*sj)
	})

	span.SetAttributes(attribute.Int("experience.entry_count", len(entries)))
	e.logger.Debug().Int("entry_count", len(entries)).Msg("工作经历提取完成")
	return entries, nil
}

// segmentDatedBlocks 按日期行把章节正文切分为条目块
// 每个含日期区间且非要点的行开启一个新块；首个日期行之前的内容归入第一个块；
// 全文无日期行时整体作为单独一块
func segmentDatedBlocks(body string) []string {
	lines := strings.Split(body, "\n")

	var blocks []string
	var current []string
	started := false

	for _, line := range lines {
		_, hasDate := FindDateRange(line)
		isBullet := bulletPrefixRegex.MatchString(line)
		if hasDate && !isBullet && started {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
		if hasDate && !isBullet {
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
// 公司和头衔都缺失时视为噪声块丢弃
func (e *ExperienceExtractor) parseEntry(block string) (types.ExperienceEntry, bool) {
	if strings.TrimSpace(block) == "" {
		return types.ExperienceEntry{}, false
	}

	var entry types.ExperienceEntry
	lines := strings.Split(block, "\n")

	// 日期区间
	var headerLine string
	for _, line := range lines {
		if bulletPrefixRegex.MatchString(line) {
			continue
		}
		if r, ok := FindDateRange(line); ok {
			entry.Start = r.Start
			entry.End = r.End
			entry.Current = r.Current
			headerLine = line
			break
		}
	}

	// 头衔和公司：先从日期所在的头部行解析，缺的字段再从邻近行补齐
	if headerLine != "" {
		title, company := splitTitleCompany(stripDateRange(headerLine))
		entry.Title = title
		entry.Company = company
	}
	for _, line := range lines {
		if entry.Title != "" && entry.Company != "" {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == strings.TrimSpace(headerLine) || bulletPrefixRegex.MatchString(line) {
			continue
		}
		if entry.Title == "" && looksLikeJobTitle(trimmed) {
			entry.Title = trimmed
			continue
		}
		if entry.Company == "" {
			if m := companySuffixRegex.FindStringSubmatch(trimmed + " "); m != nil {
				entry.Company = strings.TrimSpace(m[0])
				entry.Company = strings.TrimRight(entry.Company, ",. ")
			}
		}
	}
	// 仍然缺公司时，用头部行后第一个非要点短行兜底
	if entry.Company == "" {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || trimmed == entry.Title || bulletPrefixRegex.MatchString(line) {
				continue
			}
			if trimmed == strings.TrimSpace(headerLine) {
				continue
			}
			if len([]rune(trimmed)) <= 50 && !looksLikeJobTitle(trimmed) {
				entry.Company = trimmed
				break
			}
		}
	}

	if entry.Title == "" && entry.Company == "" {
		return types.ExperienceEntry{}, false
	}

	// 地点
	if m := locationRegex.FindStringSubmatch(block); m != nil {
		entry.Location = strings.TrimSpace(m[1])
	}

	// 成就要点，保持文档顺序
	for _, line := range lines {
		if bulletPrefixRegex.MatchString(line) {
			achievement := bulletPrefixRegex.ReplaceAllString(line, "")
			achievement = strings.TrimSpace(achievement)
			if achievement != "" {
				entry.Achievements = append(entry.Achievements, achievement)
			}
		}
	}

	// 技术集合：词表在块内的命中，软技能不算技术
	entry.Technologies = e.scanTechnologies(block)

	// 持续月数
	if entry.Start != nil {
		end := entry.End
		if entry.Current {
			now := e.now()
			end = &now
		}
		if end != nil {
			entry.DurationMonths = MonthsBetween(*entry.Start, *end)
		}
	}

	entry.Confidence = experienceConfidence(entry, block)
	return entry, true
}

// scanTechnologies 在条目块内做词表扫描，返回规范化的技术名集合
func (e *ExperienceExtractor) scanTechnologies(block string) []string {
	tokens := tokenize(block)
	maxWords := e.taxonomy.MaxWords()

	var techs []string
	seen := make(map[string]bool)

	for i := 0; i < len(tokens); i++ {
		for n := maxWords; n >= 1; n-- {
			if i+n > len(tokens) {
				continue
			}
			words := make([]string, n)
			for j := 0; j < n; j++ {
				words[j] = tokens[i+j].Word
			}
			canonical, category, ok := e.taxonomy.Lookup(strings.Join(words, " "))
			if !ok || category == types.CategorySoftSkill {
				continue
			}
			key := strings.ToLower(canonical)
			if !seen[key] {
				seen[key] = true
				techs = append(techs, canonical)
			}
			i += n - 1
			break
		}
	}
	return techs
}

// experienceConfidence 条目置信度：基础0.5，关键字段各自加成
func experienceConfidence(entry types.ExperienceEntry, block string) float64 {
	confidence := 0.5
	if entry.Company != "" {
		confidence += 0.2
	}
	if entry.Title != "" {
		confidence += 0.2
	}
	if entry.Start != nil || entry.End != nil || entry.Current {
		confidence += 0.1
	}
	if bulletPrefixRegex.MatchString(block) || strings.ContainsAny(block, "•·▪") {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// stripDateRange 从行中去掉日期区间子串
func stripDateRange(line string) string {
	return strings.TrimSpace(dateRangeRegex.ReplaceAllString(line, ""))
}

// looksLikeJobTitle 行是否像职位头衔
func looksLikeJobTitle(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range jobTitleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitTitleCompany 解析 "头衔, 公司" / "公司 | 头衔" 形态的头部行
func splitTitleCompany(header string) (title, company string) {
	header = strings.Trim(header, " ,|-–—\t")
	if header == "" {
		return "", ""
	}

	var parts []string
	for _, sep := range []string{"|", " at ", "@", "，", ","} {
		if strings.Contains(header, sep) {
			for _, p := range strings.Split(header, sep) {
				p = strings.Trim(p, " ,|-–—\t")
				if p != "" {
					parts = append(parts, p)
				}
			}
			break
		}
	}
	if parts == nil {
		parts = []string{header}
	}

	for _, part := range parts {
		if title == "" && looksLikeJobTitle(part) {
			title = part
			continue
		}
		if company == "" {
			company = part
		}
	}
	return title, company
}
