package alert

import (
	"fmt"
	"time"

	"github.com/sapplex-sz/save-me-app/internal/model"
)

const (
	// SMSTemplateKey 告警短信模板编号，与短信平台侧的模板对应
	SMSTemplateKey = "SMS_ALERT_001"

	defaultInstructionsZH = "请立即尝试联系当事人。如果无法取得联系，请根据情况考虑报警或联系其亲友。"
	defaultInstructionsEN = "Please try to contact the person immediately. If you cannot reach them, consider calling the police or their family depending on the situation."

	unknownLocationZH = "未知位置"
	unknownLocationEN = "Unknown location"
)

// Content 一次告警的全部渠道内容，由同一个活动快照构建
type Content struct {
	Subject   string
	HTMLBody  string
	SMSParams map[string]string
	MapLink   string
}

// BuildContent 根据活动快照和错过的 deadline 构建本地化告警内容。
// 时间取错过的 deadline 而不是当前时间，收件人看到的是失联时刻。
func BuildContent(activity *model.Activity, missedDeadline time.Time, maxSMSDescRunes int) *Content {
	lang := activity.Language
	if lang != "en" {
		lang = "zh"
	}

	mapLink := buildMapLink(activity, lang)
	displayName := activity.UserName
	if displayName == "" {
		displayName = activity.PhoneNumber
	}

	instructions := activity.EmergencyInstructions
	if instructions == "" {
		if lang == "en" {
			instructions = defaultInstructionsEN
		} else {
			instructions = defaultInstructionsZH
		}
	}

	description := activity.Description
	if description == "" {
		if lang == "en" {
			description = "None"
		} else {
			description = "无"
		}
	}

	var subject, body string
	if lang == "en" {
		subject = fmt.Sprintf("[EMERGENCY] %s may be in danger - Save Me App", displayName)
		body = buildHTMLBodyEN(activity, displayName, description, instructions, mapLink, missedDeadline)
	} else {
		subject = fmt.Sprintf("【紧急求助】%s 可能遇到危险 - 救救我 App", displayName)
		body = buildHTMLBodyZH(activity, displayName, description, instructions, mapLink, missedDeadline)
	}

	return &Content{
		Subject:  subject,
		HTMLBody: body,
		SMSParams: map[string]string{
			"activityId": activity.PublicID,
			"location":   mapLink,
			"desc":       truncateRunes(description, maxSMSDescRunes),
		},
		MapLink: mapLink,
	}
}

// buildMapLink 有坐标时生成高德地图标记链接，经度在前
func buildMapLink(activity *model.Activity, lang string) string {
	if activity.LastLatitude == nil || activity.LastLongitude == nil {
		if lang == "en" {
			return unknownLocationEN
		}
		return unknownLocationZH
	}

	label := "最后已知位置"
	if lang == "en" {
		label = "Last known location"
	}
	return fmt.Sprintf("https://uri.amap.com/marker?position=%v,%v&name=%s",
		*activity.LastLongitude, *activity.LastLatitude, label)
}

func buildHTMLBodyZH(activity *model.Activity, displayName, description, instructions, mapLink string, missedDeadline time.Time) string {
	coords := ""
	locationBlock := `<p style="color: #d32f2f; font-weight: bold;">无法获取到具体位置坐标。</p>`
	if activity.LastLatitude != nil && activity.LastLongitude != nil {
		coords = fmt.Sprintf(`<p><strong>最后已知坐标：</strong>%v, %v</p>`, *activity.LastLatitude, *activity.LastLongitude)
		locationBlock = fmt.Sprintf(`
                <div style="text-align: center; margin: 30px 0;">
                    <a href="%s" style="background-color: #d32f2f; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">在地图上查看位置</a>
                    <p style="font-size: 12px; color: #999; margin-top: 10px;">(点击按钮将打开高德地图)</p>
                </div>`, mapLink)
	}

	return fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
            <div style="background-color: #d32f2f; color: white; padding: 20px; text-align: center;">
                <h1 style="margin: 0;">紧急求助警报</h1>
            </div>
            <div style="padding: 20px;">
                <p><strong>%s</strong> 通过“救救我” App 触发了紧急预警。</p>
                <p>由于长时间未报平安（超时），系统自动发送此邮件。</p>

                <div style="background-color: #f5f5f5; padding: 15px; border-radius: 4px; margin: 20px 0;">
                    <h3 style="margin-top: 0; color: #d32f2f;">活动详情</h3>
                    <p><strong>活动名称：</strong>%s</p>
                    <p><strong>事项描述：</strong>%s</p>
                    <p><strong>最后报平安时间：</strong>%s</p>
                    %s
                </div>

                <div style="background-color: #fff3e0; padding: 15px; border-left: 5px solid #ff9800; border-radius: 4px; margin: 20px 0;">
                    <h3 style="margin-top: 0; color: #e65100;">紧急操作指令</h3>
                    <p style="white-space: pre-wrap;">%s</p>
                </div>
                %s
                <p style="color: #666; font-size: 12px; border-top: 1px solid #eee; padding-top: 10px;">此邮件由“救救我”自动安全系统发出。请勿直接回复。</p>
            </div>
        </div>`,
		displayName,
		activity.ActivityName,
		description,
		missedDeadline.Format("2006-01-02 15:04:05"),
		coords,
		instructions,
		locationBlock,
	)
}

func buildHTMLBodyEN(activity *model.Activity, displayName, description, instructions, mapLink string, missedDeadline time.Time) string {
	coords := ""
	locationBlock := `<p style="color: #d32f2f; font-weight: bold;">No location coordinates available.</p>`
	if activity.LastLatitude != nil && activity.LastLongitude != nil {
		coords = fmt.Sprintf(`<p><strong>Last known coordinates:</strong> %v, %v</p>`, *activity.LastLatitude, *activity.LastLongitude)
		locationBlock = fmt.Sprintf(`
                <div style="text-align: center; margin: 30px 0;">
                    <a href="%s" style="background-color: #d32f2f; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">View location on map</a>
                </div>`, mapLink)
	}

	return fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
            <div style="background-color: #d32f2f; color: white; padding: 20px; text-align: center;">
                <h1 style="margin: 0;">Emergency Alert</h1>
            </div>
            <div style="padding: 20px;">
                <p><strong>%s</strong> triggered an emergency alert through the Save Me App.</p>
                <p>This email was sent automatically because they failed to check in before their deadline.</p>

                <div style="background-color: #f5f5f5; padding: 15px; border-radius: 4px; margin: 20px 0;">
                    <h3 style="margin-top: 0; color: #d32f2f;">Activity details</h3>
                    <p><strong>Activity:</strong> %s</p>
                    <p><strong>Description:</strong> %s</p>
                    <p><strong>Last check-in deadline:</strong> %s</p>
                    %s
                </div>

                <div style="background-color: #fff3e0; padding: 15px; border-left: 5px solid #ff9800; border-radius: 4px; margin: 20px 0;">
                    <h3 style="margin-top: 0; color: #e65100;">Emergency instructions</h3>
                    <p style="white-space: pre-wrap;">%s</p>
                </div>
                %s
                <p style="color: #666; font-size: 12px; border-top: 1px solid #eee; padding-top: 10px;">This email was sent by the Save Me automated safety system. Do not reply.</p>
            </div>
        </div>`,
		displayName,
		activity.ActivityName,
		description,
		missedDeadline.Format("2006-01-02 15:04:05"),
		coords,
		instructions,
		locationBlock,
	)
}

// truncateRunes 按 rune 截断，避免把多字节字符切成半个
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
