package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("A"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10), "未超限的字符串应原样返回")

	long := "abcdefghijklmnopqrstuvwxyz"
	got := TruncateString(long, 11)
	assert.LessOrEqual(t, len([]rune(got)), 11)
	assert.Contains(t, got, "...", "截断后应带省略号")
}

func TestSafeAttributeValueMasksSensitiveNames(t *testing.T) {
	masked := SafeAttributeValue("user.email", "someone@example.com", DefaultMaxLength)
	assert.NotEqual(t, "someone@example.com", masked, "email属性值必须被掩码")
	assert.Contains(t, masked, "*")

	plain := SafeAttributeValue("db.operation", "SELECT", DefaultMaxLength)
	assert.Equal(t, "SELECT", plain, "非敏感属性不应被改写")
}
