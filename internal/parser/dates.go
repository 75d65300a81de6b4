package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateRange 一段时间区间，End为nil且Current为true表示至今
type DateRange struct {
	Start   *time.Time
	End     *time.Time
	Current bool
}

// 常见的简历日期写法，按命中概率排序
var dateLayouts = []string{
	"January 2006",
	"Jan 2006",
	"Jan. 2006",
	"2006-01",
	"01/2006",
	"2006/01",
	"2006.01",
	"2006年1月",
	"2006年01月",
	"2006",
}

// 在职标记
var presentMarkers = map[string]bool{
	"present": true,
	"current": true,
	"now":     true,
	"ongoing": true,
	"today":   true,
	"至今":      true,
	"现在":      true,
	"迄今":      true,
}

// dateRangeRegex 匹配一行中的 "起 - 止" 日期区间
// 起止两端是日期token，分隔符兼容连字符、各种破折号和中文"至/到"
var dateRangeRegex = regexp.MustCompile(
	`(?i)([A-Za-z]{3,9}\.?\s+\d{4}|\d{4}[-/.年]\d{1,2}月?|\d{1,2}/\d{4}|\d{4})\s*(?:[-–—~]|to|至|到)\s*` +
		`([A-Za-z]{3,9}\.?\s+\d{4}|\d{4}[-/.年]\d{1,2}月?|\d{1,2}/\d{4}|\d{4}|present|current|now|ongoing|today|至今|现在|迄今)`,
)

// FindDateRange 在一行文本中查找日期区间
// 找到时返回解析结果和true；起止都解析失败时视为未找到
func FindDateRange(line string) (DateRange, bool) {
	m := dateRangeRegex.FindStringSubmatch(line)
	if m == nil {
		return DateRange{}, false
	}

	var r DateRange
	r.Start = ParseFlexibleDate(m[1])

	endToken := strings.ToLower(strings.TrimSpace(m[2]))
	if presentMarkers[endToken] {
		r.Current = true
	} else {
		r.End = ParseFlexibleDate(m[2])
	}

	if r.Start == nil && r.End == nil && !r.Current {
		return DateRange{}, false
	}
	// 起止颠倒时交换，保证 Start <= End
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		r.Start, r.End = r.End, r.Start
	}
	return r, true
}

// ParseFlexibleDate 宽松解析单个日期token
// 先用内置布局逐个尝试，失败后回退到dateparse的通用解析；
// 整体失败时返回nil而不报错，调用方把nil当作"未注明日期"处理
func ParseFlexibleDate(token string) *time.Time {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return &t
		}
	}

	// 通用回退
	if t, err := dateparse.ParseAny(token); err == nil {
		return &t
	}
	return nil
}

// MonthsBetween 计算两个时间点之间的月数，最小为0
func MonthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	return months
}
