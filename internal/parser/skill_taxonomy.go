package parser

import (
	"strings"

	"resume-engine-go/internal/types"
)

// 内置技能词表，按类别组织
// 配置中的 extra_vocabulary 会叠加在该词表之上
var builtinVocabulary = map[types.SkillCategory][]string{
	types.CategoryProgramming: {
		"Python", "JavaScript", "Java", "C++", "C#", "PHP", "Ruby", "Go", "Rust",
		"Swift", "Kotlin", "TypeScript", "Scala", "R", "MATLAB", "Perl", "Shell",
		"Bash", "PowerShell", "SQL", "HTML", "CSS", "Dart", "Elixir", "Clojure",
	},
	types.CategoryFramework: {
		"React", "Angular", "Vue.js", "Django", "Flask", "Spring", "Express.js",
		"Laravel", "Ruby on Rails", "ASP.NET", "FastAPI", "Node.js", "jQuery",
		"Bootstrap", "Tailwind CSS", "TensorFlow", "PyTorch", "Scikit-learn",
		"Pandas", "NumPy", "Matplotlib", "Seaborn", "Keras", "Hadoop", "Spark",
		"Gin", "gRPC",
	},
	types.CategoryDatabase: {
		"MySQL", "PostgreSQL", "MongoDB", "Redis", "SQLite", "Oracle", "SQL Server",
		"Cassandra", "DynamoDB", "Elasticsearch", "Neo4j", "InfluxDB", "CouchDB",
		"MariaDB", "Firebase", "Supabase",
	},
	types.CategoryPlatform: {
		"AWS", "Azure", "Google Cloud", "Heroku", "DigitalOcean", "Vercel",
		"Netlify", "Docker", "Kubernetes", "Terraform", "Ansible",
		"Jenkins", "GitHub Actions", "GitLab CI", "CircleCI", "RabbitMQ", "Kafka",
	},
	types.CategoryTool: {
		"Git", "GitHub", "GitLab", "Bitbucket", "Jira", "Confluence", "Slack",
		"Trello", "Asana", "Notion", "Figma", "VS Code",
		"IntelliJ IDEA", "Eclipse", "Postman", "Insomnia", "Tableau", "Power BI",
	},
	types.CategorySoftSkill: {
		"Leadership", "Communication", "Teamwork", "Problem Solving", "Critical Thinking",
		"Time Management", "Project Management", "Customer Service", "Sales",
		"Marketing", "Research", "Analysis", "Creativity", "Adaptability",
		"Collaboration", "Presentation", "Negotiation",
	},
	types.CategoryMethodology: {
		"Agile", "Scrum", "Kanban", "TDD", "CI/CD", "DevOps", "Microservices",
	},
}

// 内置别名表: 小写别名 -> 规范名
// 配置中的 aliases 会叠加并覆盖同名项
var builtinAliases = map[string]string{
	"js":         "JavaScript",
	"ts":         "TypeScript",
	"golang":     "Go",
	"k8s":        "Kubernetes",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"mongo":      "MongoDB",
	"node":       "Node.js",
	"nodejs":     "Node.js",
	"node.js":    "Node.js",
	"vue":        "Vue.js",
	"vuejs":      "Vue.js",
	"reactjs":    "React",
	"react.js":   "React",
	"gcp":        "Google Cloud",
	"sklearn":    "Scikit-learn",
	"expressjs":  "Express.js",
	"express":    "Express.js",
	"rails":      "Ruby on Rails",
	"tf":         "TensorFlow",
	"es":         "Elasticsearch",
}

// vocabEntry 词表中的一项
type vocabEntry struct {
	Canonical string              // 规范显示名
	Category  types.SkillCategory // 所属类别
}

// Taxonomy 技能分类词表
// 负责词条查找、别名折叠和规范名映射，词表构建后只读
type Taxonomy struct {
	// 小写词条（含别名）-> 词表项
	entries map[string]vocabEntry
	// 最长词条包含的单词数，限定n-gram匹配窗口
	maxWords int
}

// NewTaxonomy 构建技能词表
// extra为配置追加的词表（类别名 -> 技能列表），aliases为配置追加的别名表
func NewTaxonomy(extra map[string][]string, aliases map[string]string) *Taxonomy {
	t := &Taxonomy{entries: make(map[string]vocabEntry)}

	add := func(name string, category types.SkillCategory) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return
		}
		t.entries[key] = vocabEntry{Canonical: strings.TrimSpace(name), Category: category}
		if n := len(strings.Fields(key)); n > t.maxWords {
			t.maxWords = n
		}
	}

	for category, names := range builtinVocabulary {
		for _, name := range names {
			add(name, category)
		}
	}
	for category, names := range extra {
		for _, name := range names {
			add(name, types.SkillCategory(category))
		}
	}

	// 别名指向已有词条时继承其类别，否则归入other
	registerAlias := func(alias, canonical string) {
		key := strings.ToLower(strings.TrimSpace(alias))
		if key == "" {
			return
		}
		category := types.CategoryOther
		if entry, ok := t.entries[strings.ToLower(canonical)]; ok {
			category = entry.Category
			canonical = entry.Canonical
		}
		t.entries[key] = vocabEntry{Canonical: canonical, Category: category}
	}
	for alias, canonical := range builtinAliases {
		registerAlias(alias, canonical)
	}
	for alias, canonical := range aliases {
		registerAlias(alias, canonical)
	}

	return t
}

// Lookup 查找词条，返回规范名和类别
func (t *Taxonomy) Lookup(token string) (string, types.SkillCategory, bool) {
	entry, ok := t.entries[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return "", "", false
	}
	return entry.Canonical, entry.Category, true
}

// Canonicalize 将任意技能名折叠到规范形态
// 词表外的名字保持原样（仅去除首尾空白），类别归入other
func (t *Taxonomy) Canonicalize(token string) (string, types.SkillCategory) {
	if canonical, category, ok := t.Lookup(token); ok {
		return canonical, category
	}
	return strings.TrimSpace(token), types.CategoryOther
}

// MaxWords 词表中最长词条的单词数
func (t *Taxonomy) MaxWords() int {
	if t.maxWords < 1 {
		return 1
	}
	return t.maxWords
}

// Contains 词条是否在词表内
func (t *Taxonomy) Contains(token string) bool {
	_, ok := t.entries[strings.ToLower(strings.TrimSpace(token))]
	return ok
}
