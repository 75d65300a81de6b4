package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-engine-go/internal/types"
)

// skillFixture 构造带SKILLS章节的规范化文本
func skillFixture(fullText, skillsBody string) *types.NormalizedText {
	return &types.NormalizedText{
		FullText: fullText,
		Sections: []types.Section{
			{Kind: types.SectionUnknown, Ordinal: 0, Body: "John Smith"},
			{Kind: types.SectionSkills, Title: "Skills", Ordinal: 1, Body: skillsBody},
		},
	}
}

// TestSkillExtractorMerge 多方法命中同一技能时合并去重并叠加加成
func TestSkillExtractorMerge(t *testing.T) {
	taxonomy := NewTaxonomy(nil, nil)
	extractor := NewSkillExtractor(taxonomy)

	text := skillFixture(
		"Proficient in Python and Docker\nSkills\nPython, Docker, Leadership",
		"Python, Docker, Leadership",
	)

	skills, err := extractor.Extract(context.Background(), text)
	require.NoError(t, err, "全部方法成功时不应返回错误")
	require.Len(t, skills, 3, "同名候选应合并为单条")

	byName := make(map[string]types.ExtractedSkill, len(skills))
	for _, s := range skills {
		byName[s.Name] = s
	}

	python, ok := byName["Python"]
	require.True(t, ok, "应包含Python")
	assert.Equal(t, types.CategoryProgramming, python.Category)
	assert.Equal(t, 3, python.Methods, "三个方法都应命中Python")
	assert.InDelta(t, 1.0, python.Confidence, 1e-9, "多方法同意加成后应达到上限")

	leadership, ok := byName["Leadership"]
	require.True(t, ok, "应包含Leadership")
	assert.Equal(t, types.CategorySoftSkill, leadership.Category)

	// 置信度降序，同分按名称升序
	for i := 1; i < len(skills); i++ {
		prev, cur := skills[i-1], skills[i]
		if prev.Confidence == cur.Confidence {
			assert.Less(t, prev.Name, cur.Name, "同分技能应按名称升序")
		} else {
			assert.Greater(t, prev.Confidence, cur.Confidence, "技能应按置信度降序")
		}
	}
}

// TestSkillExtractorAliasFolding 别名写法与规范名合并为同一条
func TestSkillExtractorAliasFolding(t *testing.T) {
	taxonomy := NewTaxonomy(nil, nil)
	extractor := NewSkillExtractor(taxonomy)

	text := skillFixture("Experienced with golang in production", "Go")

	skills, err := extractor.Extract(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, skills, 1, "golang和Go应折叠为同一条")
	assert.Equal(t, "Go", skills[0].Name)
	assert.Equal(t, types.CategoryProgramming, skills[0].Category)
	assert.Equal(t, 3, skills[0].Methods)
}

// TestSkillExtractorMultiWordSkill 多词技能不应被拆成子词
func TestSkillExtractorMultiWordSkill(t *testing.T) {
	taxonomy := NewTaxonomy(nil, nil)
	extractor := NewSkillExtractor(taxonomy)

	text := skillFixture("Built web apps with Ruby on Rails", "Ruby on Rails")

	skills, err := extractor.Extract(context.Background(), text)
	require.NoError(t, err)

	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Ruby on Rails", "多词词条应整体命中")
	assert.NotContains(t, names, "Ruby", "子词不应单独出现")
}

// failingGenerator 总是失败的候选生成方法，测试用
type failingGenerator struct{}

func (g failingGenerator) Name() string               { return "failing" }
func (g failingGenerator) Method() types.SourceMethod { return types.MethodModel }
func (g failingGenerator) Generate(ctx context.Context, text *types.NormalizedText) ([]SkillCandidate, error) {
	return nil, errors.New("模型服务不可用")
}

// TestSkillExtractorPartialFailure 部分方法失败时保留其余方法的结果并上报错误
func TestSkillExtractorPartialFailure(t *testing.T) {
	taxonomy := NewTaxonomy(nil, nil)
	extractor := NewSkillExtractor(taxonomy,
		WithGenerators(failingGenerator{}, NewDictionaryGenerator(taxonomy)),
	)

	text := skillFixture("Worked with Python daily", "")

	skills, err := extractor.Extract(context.Background(), text)
	require.Error(t, err, "部分失败应返回错误供上层记录")
	assert.NotEmpty(t, skills, "剩余方法的候选应照常合并")
	assert.Equal(t, "Python", skills[0].Name)
}

// TestSkillExtractorAllFail 全部方法失败时返回错误
func TestSkillExtractorAllFail(t *testing.T) {
	taxonomy := NewTaxonomy(nil, nil)
	extractor := NewSkillExtractor(taxonomy, WithGenerators(failingGenerator{}))

	skills, err := extractor.Extract(context.Background(), skillFixture("any text", ""))
	require.Error(t, err)
	assert.Empty(t, skills)
}

// TestMergeCategoryOrderIndependent 类别采信与候选到达顺序无关
// 高优先级方法只给出Other时，低优先级方法的有效类别应胜出。
func TestMergeCategoryOrderIndependent(t *testing.T) {
	extractor := NewSkillExtractor(NewTaxonomy(nil, nil))

	modelOther := SkillCandidate{Name: "FluxCapacitor", Method: types.MethodModel, Confidence: 0.7, Category: types.CategoryOther}
	regexTool := SkillCandidate{Name: "FluxCapacitor", Method: types.MethodRegex, Confidence: 0.5, Category: types.CategoryTool}

	forward := extractor.merge([]SkillCandidate{modelOther, regexTool})
	reversed := extractor.merge([]SkillCandidate{regexTool, modelOther})

	require.Len(t, forward, 1)
	require.Len(t, reversed, 1)
	assert.Equal(t, types.CategoryTool, forward[0].Category, "Other不算有效类别主张")
	assert.Equal(t, forward[0].Category, reversed[0].Category, "两种顺序的合并结果应一致")
	assert.Equal(t, forward[0].Confidence, reversed[0].Confidence)
}

// TestContextAdjust 上下文加成词按命中次数调整置信度并钳制在[0,1]
func TestContextAdjust(t *testing.T) {
	assert.InDelta(t, 0.6, contextAdjust(0.5, "proficient in Go"), 1e-9, "正向词应加0.1")
	assert.InDelta(t, 0.4, contextAdjust(0.5, "currently learning Go"), 1e-9, "负向词应减0.1")
	assert.InDelta(t, 1.0, contextAdjust(0.95, "expert with extensive experience"), 1e-9, "上限为1.0")
	assert.InDelta(t, 0.0, contextAdjust(0.05, "beginner learning basic concepts"), 1e-9, "下限为0.0")
}

// TestTokenize 词元化保留技能名中的特殊字符
func TestTokenize(t *testing.T) {
	tokens := tokenize("C++ and C# with Node.js, CI/CD pipelines")
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, tok.Word)
	}
	assert.Contains(t, words, "C++")
	assert.Contains(t, words, "C#")
	assert.Contains(t, words, "Node.js")
	assert.Contains(t, words, "CI/CD")
}
