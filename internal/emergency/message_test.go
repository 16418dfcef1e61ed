package emergency

import (
	"testing"
	"time"

	"GuardianSOS/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "37.5665", formatCoord(37.5665))
	assert.Equal(t, "127.0", formatCoord(127))
	assert.Equal(t, "-33.8688", formatCoord(-33.8688))
	assert.Equal(t, "0.0", formatCoord(0))
}

func TestBuildMessage(t *testing.T) {
	at := time.Date(2024, 3, 1, 14, 30, 5, 0, time.Local)
	a := &models.EmergencyAlert{
		Latitude:          37.5665,
		Longitude:         127,
		Address:           "서울특별시 중구 세종대로 110",
		SituationAnalysis: "화재 의심",
		EmergencyType:     models.EmergencyFire,
		AlertTime:         at.UTC(),
	}
	u := &models.User{Name: "김철수", PhoneNumber: "010-1234-5678"}

	want := "🚨 긴급 상황 알림 🚨\n\n" +
		"📍 요구조자: 김철수\n" +
		"📞 연락처: 010-1234-5678\n\n" +
		"⚠️ 상황: 화재\n" +
		"🔍 AI 분석:\n화재 의심\n\n" +
		"📍 위치: 서울특별시 중구 세종대로 110\n" +
		"🗺️ 좌표: 37.5665, 127.0\n" +
		"🔗 지도: https://maps.google.com/?q=37.5665,127.0\n\n" +
		"⏰ 발생 시각: 2024-03-01T14:30:05\n\n" +
		"즉시 확인하시고 필요시 관계 기관(경찰 112, 소방 119)에 신고해주세요!"
	assert.Equal(t, want, BuildMessage(a, u))
}

func TestNotifiedMessage(t *testing.T) {
	assert.Equal(t, "0명의 긴급 연락처에게 알림 전송 완료", NotifiedMessage(0))
	assert.Equal(t, "3명의 긴급 연락처에게 알림 전송 완료", NotifiedMessage(3))
}

func TestAlertLocksSameStripe(t *testing.T) {
	var l alertLocks
	unlock := l.lock(7)
	done := make(chan struct{})
	go func() {
		l.lock(7)()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second lock on the same alert did not wait")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
}
