package models

// EmergencyType 紧急情况分类
type EmergencyType string

const (
	EmergencyAccident        EmergencyType = "ACCIDENT"
	EmergencyAssault         EmergencyType = "ASSAULT"
	EmergencyKidnapping      EmergencyType = "KIDNAPPING"
	EmergencyMedical         EmergencyType = "MEDICAL"
	EmergencyFire            EmergencyType = "FIRE"
	EmergencyNaturalDisaster EmergencyType = "NATURAL_DISASTER"
	EmergencyStalking        EmergencyType = "STALKING"
	EmergencyOther           EmergencyType = "OTHER"
)

var emergencyTypeDescriptions = map[EmergencyType]string{
	EmergencyAccident:        "사고",
	EmergencyAssault:         "폭행/범죄",
	EmergencyKidnapping:      "납치/유괴",
	EmergencyMedical:         "응급의료",
	EmergencyFire:            "화재",
	EmergencyNaturalDisaster: "재난",
	EmergencyStalking:        "스토킹",
	EmergencyOther:           "기타",
}

// EmergencyTypes lists every type in classifier priority order.
var EmergencyTypes = []EmergencyType{
	EmergencyAccident,
	EmergencyAssault,
	EmergencyKidnapping,
	EmergencyMedical,
	EmergencyFire,
	EmergencyNaturalDisaster,
	EmergencyStalking,
	EmergencyOther,
}

func (t EmergencyType) Description() string { return emergencyTypeDescriptions[t] }

func (t EmergencyType) Valid() bool {
	_, ok := emergencyTypeDescriptions[t]
	return ok
}

// AlertStatus 告警状态
type AlertStatus string

const (
	StatusPending    AlertStatus = "PENDING"
	StatusNotified   AlertStatus = "NOTIFIED"
	StatusInProgress AlertStatus = "IN_PROGRESS"
	StatusResolved   AlertStatus = "RESOLVED"
	StatusFalseAlarm AlertStatus = "FALSE_ALARM"
)

var alertStatusDescriptions = map[AlertStatus]string{
	StatusPending:    "대기중",
	StatusNotified:   "알림 발송됨",
	StatusInProgress: "처리중",
	StatusResolved:   "해결됨",
	StatusFalseAlarm: "오작동",
}

var AlertStatuses = []AlertStatus{StatusPending, StatusNotified, StatusInProgress, StatusResolved, StatusFalseAlarm}

func (s AlertStatus) Description() string { return alertStatusDescriptions[s] }

func (s AlertStatus) Valid() bool {
	_, ok := alertStatusDescriptions[s]
	return ok
}

// Terminal RESOLVED 与 FALSE_ALARM 为终态
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusFalseAlarm
}
