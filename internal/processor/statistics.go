package processor

import (
	"sort"
	"strings"

	"resume-engine-go/internal/types"
)

// BuildStatistics 汇总一次解析的统计数据
// 输入为已填充完实体的ParsedResume，函数只读不写。
func BuildStatistics(resume *types.ParsedResume, topSkillCount int) *types.AnalysisStatistics {
	if resume == nil {
		return nil
	}
	if topSkillCount <= 0 {
		topSkillCount = 10
	}

	stats := &types.AnalysisStatistics{
		Text:       buildTextStatistics(resume.Text),
		Skills:     buildSkillStatistics(resume.Skills, topSkillCount),
		Experience: buildExperienceStatistics(resume.Experience),
		Education:  buildEducationStatistics(resume.Education),
	}
	stats.Completeness = parsingCompleteness(resume)
	return stats
}

func buildTextStatistics(text *types.NormalizedText) types.TextStatistics {
	if text == nil {
		return types.TextStatistics{}
	}
	return types.TextStatistics{
		TotalCharacters: len([]rune(text.FullText)),
		WordCount:       len(strings.Fields(text.FullText)),
		LineCount:       len(strings.Split(text.FullText, "\n")),
		SectionCount:    len(text.Sections),
	}
}

func buildSkillStatistics(skills []types.ExtractedSkill, topSkillCount int) types.SkillStatistics {
	stats := types.SkillStatistics{
		TotalSkills: len(skills),
		ByCategory:  make(map[types.SkillCategory]int),
		ByMethod:    make(map[types.SourceMethod]int),
	}
	if len(skills) == 0 {
		return stats
	}

	var confSum float64
	for _, skill := range skills {
		stats.ByCategory[skill.Category]++
		stats.ByMethod[skill.Source]++
		confSum += skill.Confidence
	}
	stats.AverageConfidence = confSum / float64(len(skills))

	// TopSkills按置信度降序取前N，同分保持原有名称序
	sorted := make([]types.ExtractedSkill, len(skills))
	copy(sorted, skills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > topSkillCount {
		sorted = sorted[:topSkillCount]
	}
	stats.TopSkills = sorted

	return stats
}

func buildExperienceStatistics(entries []types.ExperienceEntry) types.ExperienceStatistics {
	stats := types.ExperienceStatistics{
		TotalEntries: len(entries),
	}
	if len(entries) == 0 {
		return stats
	}

	for _, entry := range entries {
		stats.TotalDurationMonths += entry.DurationMonths
		if entry.Current {
			stats.CurrentPositions++
		}
	}
	stats.AverageDurationMonth = float64(stats.TotalDurationMonths) / float64(len(entries))
	return stats
}

func buildEducationStatistics(entries []types.EducationEntry) types.EducationStatistics {
	stats := types.EducationStatistics{
		TotalEntries: len(entries),
	}
	for _, entry := range entries {
		if entry.Institution != "" {
			stats.Institutions = append(stats.Institutions, entry.Institution)
		}
		if entry.Degree != "" {
			stats.Degrees = append(stats.Degrees, entry.Degree)
		}
	}
	return stats
}

// parsingCompleteness 解析完整度 [0,1]
// 六个信息组各占一份：全文、联系方式、摘要章节、技能、工作经历、教育经历。
func parsingCompleteness(resume *types.ParsedResume) float64 {
	const totalGroups = 6.0
	filled := 0

	if resume.Text != nil && strings.TrimSpace(resume.Text.FullText) != "" {
		filled++
	}
	if !resume.Contact.Empty() {
		filled++
	}
	if resume.Text != nil && resume.Text.SectionOfKind(types.SectionSummary) != nil {
		filled++
	}
	if len(resume.Skills) > 0 {
		filled++
	}
	if len(resume.Experience) > 0 {
		filled++
	}
	if len(resume.Education) > 0 {
		filled++
	}

	return float64(filled) / totalGroups
}
