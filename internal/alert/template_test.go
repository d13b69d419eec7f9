package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapplex-sz/save-me-app/internal/model"
)

func float64Ptr(v float64) *float64 { return &v }

func testActivity() *model.Activity {
	return &model.Activity{
		PublicID:              "act-123",
		PhoneNumber:           "13800138000",
		UserName:              "张三",
		Language:              "zh",
		ActivityName:          "夜跑",
		Description:           "沿江边夜跑",
		EmergencyInstructions: "",
		LastLatitude:          float64Ptr(31.2304),
		LastLongitude:         float64Ptr(121.4737),
	}
}

func TestBuildContentChinese(t *testing.T) {
	activity := testActivity()
	deadline := time.Date(2026, 3, 1, 22, 30, 0, 0, time.Local)

	content := BuildContent(activity, deadline, 64)
	require.NotNil(t, content)

	assert.Contains(t, content.Subject, "紧急求助")
	assert.Contains(t, content.Subject, "张三")
	assert.Contains(t, content.HTMLBody, "夜跑")
	assert.Contains(t, content.HTMLBody, "2026-03-01 22:30:00")
	// 未提供紧急指令时使用默认文案
	assert.Contains(t, content.HTMLBody, "请立即尝试联系当事人")
}

func TestBuildContentEnglish(t *testing.T) {
	activity := testActivity()
	activity.Language = "en"
	activity.UserName = "Alice"
	deadline := time.Date(2026, 3, 1, 22, 30, 0, 0, time.Local)

	content := BuildContent(activity, deadline, 64)

	assert.Contains(t, content.Subject, "EMERGENCY")
	assert.Contains(t, content.Subject, "Alice")
	assert.Contains(t, content.HTMLBody, "Emergency instructions")
	assert.Contains(t, content.HTMLBody, "Please try to contact the person immediately")
	assert.Contains(t, content.MapLink, "Last known location")
}

func TestBuildContentMapLink(t *testing.T) {
	activity := testActivity()
	content := BuildContent(activity, time.Now(), 64)

	// 经度在前，纬度在后
	assert.Contains(t, content.MapLink, "https://uri.amap.com/marker?position=121.4737,31.2304")
	assert.Contains(t, content.MapLink, "最后已知位置")
	assert.Equal(t, content.MapLink, content.SMSParams["location"])
}

func TestBuildContentUnknownLocation(t *testing.T) {
	activity := testActivity()
	activity.LastLatitude = nil
	activity.LastLongitude = nil

	content := BuildContent(activity, time.Now(), 64)
	assert.Equal(t, "未知位置", content.MapLink)
	assert.Contains(t, content.HTMLBody, "无法获取到具体位置坐标")

	activity.Language = "en"
	content = BuildContent(activity, time.Now(), 64)
	assert.Equal(t, "Unknown location", content.MapLink)
}

func TestBuildContentPhoneFallback(t *testing.T) {
	activity := testActivity()
	activity.UserName = ""

	content := BuildContent(activity, time.Now(), 64)
	assert.Contains(t, content.Subject, "13800138000")
}

func TestBuildContentSMSTruncation(t *testing.T) {
	activity := testActivity()
	activity.Description = strings.Repeat("危", 100)

	content := BuildContent(activity, time.Now(), 64)
	desc := content.SMSParams["desc"]
	assert.Equal(t, 64, len([]rune(desc)))
	// 截断不能破坏多字节字符
	assert.True(t, strings.HasPrefix(activity.Description, desc))

	assert.Equal(t, "act-123", content.SMSParams["activityId"])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
	assert.Equal(t, "你好", truncateRunes("你好世界", 2))
}
