package processor

import (
	"time"

	"resume-engine-go/internal/storage"

	"github.com/rs/zerolog"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompTextextractor 设置文本提取组件
func WithcompTextextractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.TextExtractor = extractor
	}
}

// WithcompSkillextractor 设置技能提取组件
func WithcompSkillextractor(extractor SkillExtractor) ComponentOpt {
	return func(c *Components) {
		c.SkillExtractor = extractor
	}
}

// WithcompExperienceextractor 设置工作经历提取组件
func WithcompExperienceextractor(extractor ExperienceExtractor) ComponentOpt {
	return func(c *Components) {
		c.ExperienceExtractor = extractor
	}
}

// WithcompEducationextractor 设置教育经历提取组件
func WithcompEducationextractor(extractor EducationExtractor) ComponentOpt {
	return func(c *Components) {
		c.EducationExtractor = extractor
	}
}

// WithcompQualityassessor 设置质量评估组件
func WithcompQualityassessor(assessor QualityAssessor) ComponentOpt {
	return func(c *Components) {
		c.QualityAssessor = assessor
	}
}

// WithcompStageobserver 设置阶段观察者组件
func WithcompStageobserver(observer StageObserver) ComponentOpt {
	return func(c *Components) {
		c.StageObserver = observer
	}
}

// WithcompStorage 设置存储组件
func WithcompStorage(st *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = st
	}
}

// ----- 设置选项 -----

// WithsetParserversion 设置解析器版本号，写入每次解析的元数据
func WithsetParserversion(version string) SettingOpt {
	return func(s *Settings) {
		if version != "" {
			s.ParserVersion = version
		}
	}
}

// WithsetStagetimeout 设置单阶段超时
func WithsetStagetimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		if d > 0 {
			s.StageTimeout = d
		}
	}
}

// WithsetPipelinetimeout 设置整条流水线超时
func WithsetPipelinetimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		if d > 0 {
			s.PipelineTimeout = d
		}
	}
}

// WithsetEntityworkers 设置实体提取并发数
func WithsetEntityworkers(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.EntityWorkers = n
		}
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithsetClock 设置时钟函数，测试用
func WithsetClock(now func() time.Time) SettingOpt {
	return func(s *Settings) {
		if now != nil {
			s.Clock = now
		}
	}
}

// WithsetTopskillcount 设置统计中TopSkills的数量
func WithsetTopskillcount(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.TopSkillCount = n
		}
	}
}
