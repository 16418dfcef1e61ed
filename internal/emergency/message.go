package emergency

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"GuardianSOS/internal/models"
)

const (
	EmailSubject = "🚨 긴급 상황 알림"

	messageTemplate = "🚨 긴급 상황 알림 🚨\n\n" +
		"📍 요구조자: %s\n" +
		"📞 연락처: %s\n\n" +
		"⚠️ 상황: %s\n" +
		"🔍 AI 분석:\n%s\n\n" +
		"📍 위치: %s\n" +
		"🗺️ 좌표: %s, %s\n" +
		"🔗 지도: https://maps.google.com/?q=%s,%s\n\n" +
		"⏰ 발생 시각: %s\n\n" +
		"즉시 확인하시고 필요시 관계 기관(경찰 112, 소방 119)에 신고해주세요!"

	alertTimeLayout = "2006-01-02T15:04:05"
)

// BuildMessage renders the SMS/email body sent to every contact of the alert.
func BuildMessage(a *models.EmergencyAlert, u *models.User) string {
	lat, lng := formatCoord(a.Latitude), formatCoord(a.Longitude)
	return fmt.Sprintf(messageTemplate,
		u.Name,
		u.PhoneNumber,
		a.EmergencyType.Description(),
		a.SituationAnalysis,
		a.Address,
		lat, lng,
		lat, lng,
		a.AlertTime.In(time.Local).Format(alertTimeLayout),
	)
}

// formatCoord 最短十进制表示，整数补 ".0"（37 -> "37.0"）
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
