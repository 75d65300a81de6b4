package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFindDateRange 验证日期区间识别覆盖常见写法
func TestFindDateRange(t *testing.T) {
	t.Run("英文月份区间", func(t *testing.T) {
		r, ok := FindDateRange("Senior Engineer | Acme Corp | Jan 2020 - Mar 2022")
		require.True(t, ok, "应当识别出日期区间")
		require.NotNil(t, r.Start)
		require.NotNil(t, r.End)
		assert.Equal(t, 2020, r.Start.Year(), "开始年份错误")
		assert.Equal(t, time.January, r.Start.Month(), "开始月份错误")
		assert.Equal(t, 2022, r.End.Year(), "结束年份错误")
		assert.Equal(t, time.March, r.End.Month(), "结束月份错误")
		assert.False(t, r.Current, "不应标记为在职")
	})

	t.Run("至今标记", func(t *testing.T) {
		r, ok := FindDateRange("Mar 2021 - Present")
		require.True(t, ok)
		require.NotNil(t, r.Start)
		assert.Nil(t, r.End, "在职条目不应有结束时间")
		assert.True(t, r.Current, "应标记为在职")
	})

	t.Run("中文日期区间", func(t *testing.T) {
		r, ok := FindDateRange("2019年3月 至 至今")
		require.True(t, ok)
		require.NotNil(t, r.Start)
		assert.Equal(t, 2019, r.Start.Year())
		assert.Equal(t, time.March, r.Start.Month())
		assert.True(t, r.Current)
	})

	t.Run("纯年份区间", func(t *testing.T) {
		r, ok := FindDateRange("2014 - 2018")
		require.True(t, ok)
		require.NotNil(t, r.Start)
		require.NotNil(t, r.End)
		assert.Equal(t, 2014, r.Start.Year())
		assert.Equal(t, 2018, r.End.Year())
	})

	t.Run("起止颠倒时交换", func(t *testing.T) {
		r, ok := FindDateRange("Mar 2022 - Jan 2020")
		require.True(t, ok)
		require.NotNil(t, r.Start)
		require.NotNil(t, r.End)
		assert.True(t, r.Start.Before(*r.End), "交换后开始时间应早于结束时间")
		assert.Equal(t, 2020, r.Start.Year())
	})

	t.Run("无日期的行", func(t *testing.T) {
		_, ok := FindDateRange("Developed microservices in Go")
		assert.False(t, ok, "普通正文行不应命中")
	})
}

// TestParseFlexibleDate 验证单个日期token的宽松解析
func TestParseFlexibleDate(t *testing.T) {
	cases := []struct {
		token string
		year  int
		month time.Month
	}{
		{"January 2021", 2021, time.January},
		{"Sep 2019", 2019, time.September},
		{"2020-06", 2020, time.June},
		{"2018年9月", 2018, time.September},
		{"2015", 2015, time.January},
	}
	for _, c := range cases {
		got := ParseFlexibleDate(c.token)
		require.NotNil(t, got, "解析失败: %s", c.token)
		assert.Equal(t, c.year, got.Year(), "年份错误: %s", c.token)
		assert.Equal(t, c.month, got.Month(), "月份错误: %s", c.token)
	}

	assert.Nil(t, ParseFlexibleDate(""), "空token应返回nil")
	assert.Nil(t, ParseFlexibleDate("不是日期"), "无法解析的token应返回nil")
}

// TestMonthsBetween 验证月数计算
func TestMonthsBetween(t *testing.T) {
	jan2020 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	mar2021 := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 14, MonthsBetween(jan2020, mar2021), "跨年月数计算错误")
	assert.Equal(t, 0, MonthsBetween(jan2020, jan2020), "同一时间点应为0")
	assert.Equal(t, 0, MonthsBetween(mar2021, jan2020), "结束早于开始时应钳制为0")
}
