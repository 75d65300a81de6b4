package parser

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/types"
)

var skillTracer = otel.Tracer("parser.skill_extractor")

// SkillCandidate 单个方法产出的技能候选，合并去重前的中间形态
type SkillCandidate struct {
	Name       string              // 原始命中文本
	Category   types.SkillCategory // 类别
	Confidence float64             // 该方法给出的置信度 [0,1]
	Method     types.SourceMethod  // 产出方法
	Span       *types.Span         // 可选的文本偏移
}

// CandidateGenerator 技能候选生成方法
// 三种方法（model/rule/regex）各自独立产出候选，由SkillExtractor合并
type CandidateGenerator interface {
	// Name 生成器名，用于日志
	Name() string
	// Method 方法标签
	Method() types.SourceMethod
	// Generate 从规范化文本产出候选
	Generate(ctx context.Context, text *types.NormalizedText) ([]SkillCandidate, error)
}

// 上下文加成词，出现在技能附近时调整置信度
var (
	positiveContextWords = []string{"experience", "proficient", "expert", "skilled", "knowledge", "familiar"}
	negativeContextWords = []string{"learning", "beginner", "basic", "introductory"}
)

// contextAdjust 按上下文加成词调整置信度，每个命中词 ±0.1
func contextAdjust(confidence float64, context string) float64 {
	lower := strings.ToLower(context)
	for _, word := range positiveContextWords {
		if strings.Contains(lower, word) {
			confidence += 0.1
		}
	}
	for _, word := range negativeContextWords {
		if strings.Contains(lower, word) {
			confidence -= 0.1
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.0 {
		confidence = 0.0
	}
	return confidence
}

// tokenRegex 提取词元，保留技能名中常见的 + # . / - 字符（C++、C#、Node.js、CI/CD）
var tokenRegex = regexp.MustCompile(`[\pL\pN][\pL\pN+#./-]*`)

// tokenPos 词元及其在文本中的偏移
type tokenPos struct {
	Word   string
	Offset int
}

// tokenize 将文本切分为带偏移的词元序列
func tokenize(text string) []tokenPos {
	matches := tokenRegex.FindAllStringIndex(text, -1)
	tokens := make([]tokenPos, 0, len(matches))
	for _, m := range matches {
		word := strings.TrimRight(text[m[0]:m[1]], "./-")
		if word == "" {
			continue
		}
		tokens = append(tokens, tokenPos{Word: word, Offset: m[0]})
	}
	return tokens
}

// DictionaryGenerator 词典匹配生成器（regex方法）
// 在全文上做n-gram词表查找，词表命中给固定的高置信度
type DictionaryGenerator struct {
	taxonomy *Taxonomy
}

// NewDictionaryGenerator 创建词典匹配生成器
func NewDictionaryGenerator(taxonomy *Taxonomy) *DictionaryGenerator {
	return &DictionaryGenerator{taxonomy: taxonomy}
}

func (g *DictionaryGenerator) Name() string { return "dictionary" }
func (g *DictionaryGenerator) Method() types.SourceMethod { return types.MethodRegex }

// Generate n-gram词表查找；多词词条优先于其子词条
func (g *DictionaryGenerator) Generate(ctx context.Context, text *types.NormalizedText) ([]SkillCandidate, error) {
	tokens := tokenize(text.FullText)
	maxWords := g.taxonomy.MaxWords()

	var candidates []SkillCandidate
	seen := make(map[string]bool)

	for i := 0; i < len(tokens); i++ {
		// 从最长n-gram开始尝试，保证 "Ruby on Rails" 不被拆成 "Ruby"
		for n := maxWords; n >= 1; n-- {
			if i+n > len(tokens) {
				continue
			}
			words := make([]string, n)
			for j := 0; j < n; j++ {
				words[j] = tokens[i+j].Word
			}
			gram := strings.Join(words, " ")

			canonical, category, ok := g.taxonomy.Lookup(gram)
			if !ok {
				continue
			}
			key := strings.ToLower(canonical)
			if !seen[key] {
				seen[key] = true
				last := tokens[i+n-1]
				candidates = append(candidates, SkillCandidate{
					Name:       canonical,
					Category:   category,
					Confidence: 0.8, // 词表精确命中
					Method:     types.MethodRegex,
					Span: &types.Span{
						Start: tokens[i].Offset,
						End:   last.Offset + len(last.Word),
					},
				})
			}
			i += n - 1 // 跳过已消费的词元
			break
		}
	}

	return candidates, nil
}

// RuleGenerator 规则生成器（rule方法）
// 只看SKILLS章节，按分隔符拆分列表项，基础置信度0.5，
// 词表命中+0.3，再叠加上下文加成
type RuleGenerator struct {
	taxonomy *Taxonomy
}

// NewRuleGenerator 创建规则生成器
func NewRuleGenerator(taxonomy *Taxonomy) *RuleGenerator {
	return &RuleGenerator{taxonomy: taxonomy}
}

func (g *RuleGenerator) Name() string { return "rule" }
func (g *RuleGenerator) Method() types.SourceMethod { return types.MethodRule }

// 技能列表项的分隔符：逗号、顿号、竖线、分号、项目符号
var skillListSplitRegex = regexp.MustCompile(`[,，、;；|•·]+`)

// 形如 "Languages: Python, Go" 的类别前缀
var skillLabelPrefixRegex = regexp.MustCompile(`^[\pL\pN &/+-]{2,30}[:：]\s*`)

func (g *RuleGenerator) Generate(ctx context.Context, text *types.NormalizedText) ([]SkillCandidate, error) {
	body := text.BodyOfKind(types.SectionSkills)
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	var candidates []SkillCandidate
	seen := make(map[string]bool)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• \t")
		if line == "" {
			continue
		}
		// 去掉 "Languages:" 这类前缀标签
		content := skillLabelPrefixRegex.ReplaceAllString(line, "")

		for _, item := range skillListSplitRegex.Split(content, -1) {
			item = strings.TrimSpace(item)
			if item == "" || len([]rune(item)) > 40 {
				continue
			}

			confidence := 0.5 // 基础置信度
			canonical, category := g.taxonomy.Canonicalize(item)
			if g.taxonomy.Contains(item) {
				confidence += 0.3 // 词表命中
			}
			confidence = contextAdjust(confidence, line)

			key := strings.ToLower(canonical)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, SkillCandidate{
				Name:       canonical,
				Category:   category,
				Confidence: confidence,
				Method:     types.MethodRule,
			})
		}
	}

	return candidates, nil
}

// SkillModelClient 学习型技能识别模型的客户端接口
// 实现方可以是进程内的词法模型，也可以是远程推理服务
type SkillModelClient interface {
	// ExtractSkills 从文本中识别技能
	ExtractSkills(ctx context.Context, text string) ([]SkillCandidate, error)
}

// LexicalModelClient 进程内的词法技能模型，SkillModelClient的默认实现
// 在全文上做词表查找并结合±5词窗口的上下文评分
type LexicalModelClient struct {
	taxonomy *Taxonomy
}

// NewLexicalModelClient 创建进程内词法模型
func NewLexicalModelClient(taxonomy *Taxonomy) *LexicalModelClient {
	return &LexicalModelClient{taxonomy: taxonomy}
}

// ExtractSkills 基于词表和上下文窗口打分
func (c *LexicalModelClient) ExtractSkills(ctx context.Context, text string) ([]SkillCandidate, error) {
	tokens := tokenize(text)
	maxWords := c.taxonomy.MaxWords()

	var candidates []SkillCandidate
	best := make(map[string]int) // 规范名 -> candidates下标，保留最高分

	for i := 0; i < len(tokens); i++ {
		for n := maxWords; n >= 1; n-- {
			if i+n > len(tokens) {
				continue
			}
			words := make([]string, n)
			for j := 0; j < n; j++ {
				words[j] = tokens[i+j].Word
			}
			canonical, category, ok := c.taxonomy.Lookup(strings.Join(words, " "))
			if !ok {
				continue
			}

			// ±5词的上下文窗口
			winStart := i - 5
			if winStart < 0 {
				winStart = 0
			}
			winEnd := i + n + 5
			if winEnd > len(tokens) {
				winEnd = len(tokens)
			}
			var windowWords []string
			for _, t := range tokens[winStart:winEnd] {
				windowWords = append(windowWords, t.Word)
			}

			confidence := 0.5 + 0.3 // 基础分 + 词表命中
			confidence = contextAdjust(confidence, strings.Join(windowWords, " "))

			last := tokens[i+n-1]
			candidate := SkillCandidate{
				Name:       canonical,
				Category:   category,
				Confidence: confidence,
				Method:     types.MethodModel,
				Span: &types.Span{
					Start: tokens[i].Offset,
					End:   last.Offset + len(last.Word),
				},
			}

			key := strings.ToLower(canonical)
			if idx, ok := best[key]; ok {
				if candidate.Confidence > candidates[idx].Confidence {
					candidates[idx] = candidate
				}
			} else {
				best[key] = len(candidates)
				candidates = append(candidates, candidate)
			}

			i += n - 1
			break
		}
	}

	return candidates, nil
}

// ModelGenerator 模型生成器（model方法），包装SkillModelClient
type ModelGenerator struct {
	client SkillModelClient
}

// NewModelGenerator 创建模型生成器
func NewModelGenerator(client SkillModelClient) *ModelGenerator {
	return &ModelGenerator{client: client}
}

func (g *ModelGenerator) Name() string { return "model" }
func (g *ModelGenerator) Method() types.SourceMethod { return types.MethodModel }

func (g *ModelGenerator) Generate(ctx context.Context, text *types.NormalizedText) ([]SkillCandidate, error) {
	candidates, err := g.client.ExtractSkills(ctx, text.FullText)
	if err != nil {
		return nil, fmt.Errorf("技能模型调用失败: %w", err)
	}
	return candidates, nil
}

// 合并时的方法优先级：model > rule > regex
var methodPriority = map[types.SourceMethod]int{
	types.MethodModel: 3,
	types.MethodRule:  2,
	types.MethodRegex: 1,
}

// SkillExtractor 技能提取器
// 并列运行多个候选生成方法，再按规范化名称合并去重：
// 同名候选取最高置信度，多方法同意时按配置的加成抬升，上限1.0
type SkillExtractor struct {
	generators     []CandidateGenerator
	taxonomy       *Taxonomy
	agreementBonus float64
	logger         zerolog.Logger
}

// SkillExtractorOption 技能提取器配置选项
type SkillExtractorOption func(*SkillExtractor)

// WithGenerators 替换候选生成方法列表
func WithGenerators(generators ...CandidateGenerator) SkillExtractorOption {
	return func(e *SkillExtractor) {
		e.generators = generators
	}
}

// WithAgreementBonus 配置多方法同意时的置信度加成
func WithAgreementBonus(bonus float64) SkillExtractorOption {
	return func(e *SkillExtractor) {
		if bonus >= 0 {
			e.agreementBonus = bonus
		}
	}
}

// WithModelClient 替换技能模型客户端
func WithModelClient(client SkillModelClient) SkillExtractorOption {
	return func(e *SkillExtractor) {
		for i, g := range e.generators {
			if g.Method() == types.MethodModel {
				e.generators[i] = NewModelGenerator(client)
				return
			}
		}
		e.generators = append(e.generators, NewModelGenerator(client))
	}
}

// NewSkillExtractor 创建技能提取器
// 默认注册词法模型、规则和词典三个生成方法
func NewSkillExtractor(taxonomy *Taxonomy, opts ...SkillExtractorOption) *SkillExtractor {
	e := &SkillExtractor{
		taxonomy:       taxonomy,
		agreementBonus: 0.1,
		logger:         logger.With("component", "skill_extractor"),
	}
	e.generators = []CandidateGenerator{
		NewModelGenerator(NewLexicalModelClient(taxonomy)),
		NewRuleGenerator(taxonomy),
		NewDictionaryGenerator(taxonomy),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GeneratorNames 返回已注册的候选生成方法名
func (e *SkillExtractor) GeneratorNames() []string {
	names := make([]string, 0, len(e.generators))
	for _, g := range e.generators {
		names = append(names, g.Name())
	}
	return names
}

// Extract 运行全部生成方法并合并候选
// 部分方法失败不致命：剩余方法的候选照常合并，失败以error返回供上层记录
func (e *SkillExtractor) Extract(ctx context.Context, text *types.NormalizedText) ([]types.ExtractedSkill, error) {
	ctx, span := skillTracer.Start(ctx, "SkillExtractor.Extract")
	defer span.End()

	var all []SkillCandidate
	var failures []string

	for _, gen := range e.generators {
		candidates, err := gen.Generate(ctx, text)
		if err != nil {
			e.logger.Warn().Str("generator", gen.Name()).Err(err).Msg("候选生成方法失败")
			failures = append(failures, fmt.Sprintf("%s: %v", gen.Name(), err))
			continue
		}
		e.logger.Debug().
			Str("generator", gen.Name()).
			Int("candidate_count", len(candidates)).
			Msg("候选生成完成")
		all = append(all, candidates...)
	}

	skills := e.merge(all)
	span.SetAttributes(
		attribute.Int("skills.candidate_count", len(all)),
		attribute.Int("skills.merged_count", len(skills)),
	)

	if len(failures) > 0 && len(all) == 0 {
		return nil, fmt.Errorf("所有候选生成方法失败: %s", strings.Join(failures, "; "))
	}
	if len(failures) > 0 {
		return skills, fmt.Errorf("部分候选生成方法失败: %s", strings.Join(failures, "; "))
	}
	return skills, nil
}

// merge 按规范化名称合并候选
// 不变式：合并永远按名称精确匹配，绝不跨名称模糊合并；
// 类别采信只看方法优先级，与候选到达顺序无关
func (e *SkillExtractor) merge(candidates []SkillCandidate) []types.ExtractedSkill {
	type group struct {
		best     SkillCandidate
		methods  map[types.SourceMethod]bool
		category types.SkillCategory
		catPrio  int
	}
	groups := make(map[string]*group)
	var order []string

	for _, c := range candidates {
		canonical, category := e.taxonomy.Canonicalize(c.Name)
		if c.Category != "" && c.Category != types.CategoryOther {
			category = c.Category
		}
		key := strings.ToLower(canonical)
		c.Name = canonical

		g, ok := groups[key]
		if !ok {
			g = &group{best: c, methods: map[types.SourceMethod]bool{c.Method: true}, category: category}
			// Other不算有效的类别主张，留给后续候选按方法优先级覆盖
			if category != types.CategoryOther {
				g.catPrio = methodPriority[c.Method]
			}
			groups[key] = g
			order = append(order, key)
			continue
		}

		g.methods[c.Method] = true
		// 置信度取最高；同分时高优先级方法胜出
		if c.Confidence > g.best.Confidence ||
			(c.Confidence == g.best.Confidence && methodPriority[c.Method] > methodPriority[g.best.Method]) {
			g.best = c
		}
		// 类别冲突时按方法优先级采信
		if category != types.CategoryOther && methodPriority[c.Method] > g.catPrio {
			g.category = category
			g.catPrio = methodPriority[c.Method]
		}
	}

	skills := make([]types.ExtractedSkill, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		confidence := g.best.Confidence
		// 多方法同意加成，每个额外方法叠加一次，上限1.0
		if n := len(g.methods); n > 1 {
			confidence += e.agreementBonus * float64(n-1)
			if confidence > 1.0 {
				confidence = 1.0
			}
		}
		skills = append(skills, types.ExtractedSkill{
			Name:       g.best.Name,
			Category:   g.category,
			Confidence: confidence,
			Source:     g.best.Method,
			Span:       g.best.Span,
			Methods:    len(g.methods),
		})
	}

	// 置信度降序，同分按名称升序，保证输出确定性
	sort.SliceStable(skills, func(i, j int) bool {
		if skills[i].Confidence != skills[j].Confidence {
			return skills[i].Confidence > skills[j].Confidence
		}
		return skills[i].Name < skills[j].Name
	})
	return skills
}
