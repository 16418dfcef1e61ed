package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmergencyAlert 设备触发的紧急告警，只能通过状态变更修改
type EmergencyAlert struct {
	ID                  uint          `json:"id" gorm:"primaryKey"`
	UserID              uint          `json:"userId" gorm:"index;not null"`
	Latitude            float64       `json:"latitude" gorm:"not null"`
	Longitude           float64       `json:"longitude" gorm:"not null"`
	Address             string        `json:"address" gorm:"size:255"`
	AudioTranscript     string        `json:"audioTranscript" gorm:"type:text"`
	AudioURL            *string       `json:"audioUrl" gorm:"size:512"`
	SituationAnalysis   string        `json:"situationAnalysis" gorm:"type:text"`
	EmergencyType       EmergencyType `json:"emergencyType" gorm:"size:32;not null"`
	Status              AlertStatus   `json:"status" gorm:"size:20;index;not null"`
	AdditionalInfo      string        `json:"additionalInfo" gorm:"type:text"`
	NotificationSent    bool          `json:"notificationSent"`
	NotificationMessage string        `json:"notificationMessage" gorm:"type:text"`
	AlertTime           time.Time     `json:"alertTime" gorm:"index;not null"`
	ResolvedTime        *time.Time    `json:"resolvedTime"`
	CreatedAt           time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt           time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CreateAlertWithLocation 在同一事务中写入告警和位置记录
func CreateAlertWithLocation(db *gorm.DB, alert *EmergencyAlert, loc *LocationHistory) error {
	if alert.AlertTime.IsZero() {
		alert.AlertTime = time.Now()
	}
	alert.AlertTime = alert.AlertTime.UTC()
	if alert.Status == "" {
		alert.Status = StatusPending
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alert).Error; err != nil {
			return err
		}
		if loc == nil {
			return nil
		}
		if loc.RecordedAt.IsZero() {
			loc.RecordedAt = alert.AlertTime
		}
		return CreateLocation(tx, loc)
	})
}

func GetAlert(db *gorm.DB, id uint) (*EmergencyAlert, error) {
	var alert EmergencyAlert
	if err := db.First(&alert, id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlertsByUser 最新的在前
func ListAlertsByUser(db *gorm.DB, userID uint) ([]EmergencyAlert, error) {
	var alerts []EmergencyAlert
	err := db.Where("user_id = ?", userID).
		Order("alert_time DESC").Order("id DESC").
		Find(&alerts).Error
	return alerts, err
}

func ListAlertsByStatus(db *gorm.DB, status AlertStatus) ([]EmergencyAlert, error) {
	var alerts []EmergencyAlert
	err := db.Where("status = ?", status).Order("alert_time DESC").Find(&alerts).Error
	return alerts, err
}

func ListAlertsBetween(db *gorm.DB, start, end time.Time) ([]EmergencyAlert, error) {
	var alerts []EmergencyAlert
	err := db.Where("alert_time >= ? AND alert_time <= ?", start.UTC(), end.UTC()).
		Order("alert_time DESC").Find(&alerts).Error
	return alerts, err
}

func CountAlertsByStatus(db *gorm.DB, status AlertStatus) (int64, error) {
	var n int64
	err := db.Model(&EmergencyAlert{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// ApplyAlertStatus 系统侧状态变更：
// notificationSent 仅在 NOTIFIED / IN_PROGRESS 时为 true，resolvedTime 仅在 RESOLVED 时非空
func ApplyAlertStatus(a *EmergencyAlert, status AlertStatus, message string, now time.Time) {
	a.Status = status
	a.NotificationSent = status == StatusNotified || status == StatusInProgress
	a.NotificationMessage = message
	if status == StatusResolved {
		t := now.UTC()
		a.ResolvedTime = &t
	} else {
		a.ResolvedTime = nil
	}
}

// ResolveAlert 任意状态 -> RESOLVED
func ResolveAlert(a *EmergencyAlert, now time.Time) {
	t := now.UTC()
	a.Status = StatusResolved
	a.ResolvedTime = &t
}

// MarkFalseAlarm 非终态 -> FALSE_ALARM，调用方负责检查当前状态
func MarkFalseAlarm(a *EmergencyAlert) {
	a.Status = StatusFalseAlarm
	a.ResolvedTime = nil
}

// MutateAlert loads the alert inside a transaction, applies fn and saves the
// result. Rows are locked with SELECT ... FOR UPDATE where the driver supports it.
// If fn returns an error nothing is written.
func MutateAlert(db *gorm.DB, id uint, fn func(a *EmergencyAlert) error) (*EmergencyAlert, error) {
	var alert EmergencyAlert
	err := db.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() != "sqlite" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&alert, id).Error; err != nil {
			return err
		}
		if err := fn(&alert); err != nil {
			return err
		}
		return tx.Save(&alert).Error
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}
