package location

import (
	"context"
	"strings"
	"time"

	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/errors"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	RecentWindow = 24 * time.Hour
)

// View 位置记录响应
type View struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"userId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address"`
	Accuracy   string    `json:"accuracy"`
	RecordedAt time.Time `json:"recordedAt"`
}

func toViews(locs []models.LocationHistory) []View {
	out := make([]View, 0, len(locs))
	for _, l := range locs {
		out = append(out, View{
			ID:         l.ID,
			UserID:     l.UserID,
			Latitude:   l.Latitude,
			Longitude:  l.Longitude,
			Address:    l.Address,
			Accuracy:   l.Accuracy,
			RecordedAt: l.RecordedAt,
		})
	}
	return out
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// ClampLimit 0 或负数取默认值，上限 100
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// History returns the latest limit records of the user, newest first.
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]View, error) {
	locs, err := models.ListRecentLocations(s.db.WithContext(ctx), userID, ClampLimit(limit))
	if err != nil {
		return nil, errors.Infrastructure(err, "위치 기록 조회 실패")
	}
	return toViews(locs), nil
}

// Recent returns every record of the last 24 hours.
func (s *Service) Recent(ctx context.Context, userID uint) ([]View, error) {
	now := s.now()
	return s.Range(ctx, userID, now.Add(-RecentWindow), now)
}

func (s *Service) Range(ctx context.Context, userID uint, start, end time.Time) ([]View, error) {
	if end.Before(start) {
		return nil, errors.Validation("종료 시각이 시작 시각보다 빠릅니다")
	}
	locs, err := models.ListLocationsBetween(s.db.WithContext(ctx), userID, start, end)
	if err != nil {
		return nil, errors.Infrastructure(err, "위치 기록 조회 실패")
	}
	return toViews(locs), nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTime accepts RFC3339 or an ISO local date-time (server time zone).
func ParseTime(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.Validation("%s 값이 필요합니다", field)
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Validation("%s 형식이 올바르지 않습니다: %s", field, v)
}
