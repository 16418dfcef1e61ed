package models

import (
	"time"

	"gorm.io/gorm"
)

const AccuracyGPS = "GPS"

type LocationHistory struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"userId" gorm:"index;not null"`
	Latitude   float64   `json:"latitude" gorm:"not null"`
	Longitude  float64   `json:"longitude" gorm:"not null"`
	Address    string    `json:"address" gorm:"size:255"`
	Accuracy   string    `json:"accuracy" gorm:"size:16"`
	RecordedAt time.Time `json:"recordedAt" gorm:"index;not null"`
}

func CreateLocation(db *gorm.DB, loc *LocationHistory) error {
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = time.Now()
	}
	// 统一存 UTC，sqlite 按文本比较时间
	loc.RecordedAt = loc.RecordedAt.UTC()
	return db.Create(loc).Error
}

// ListRecentLocations 最近 limit 条，新的在前
func ListRecentLocations(db *gorm.DB, userID uint, limit int) ([]LocationHistory, error) {
	var out []LocationHistory
	err := db.Where("user_id = ?", userID).
		Order("recorded_at DESC").Order("id DESC").
		Limit(limit).Find(&out).Error
	return out, err
}

// ListLocationsBetween 闭区间 [start, end]
func ListLocationsBetween(db *gorm.DB, userID uint, start, end time.Time) ([]LocationHistory, error) {
	var out []LocationHistory
	err := db.Where("user_id = ? AND recorded_at >= ? AND recorded_at <= ?", userID, start.UTC(), end.UTC()).
		Order("recorded_at DESC").Order("id DESC").
		Find(&out).Error
	return out, err
}
