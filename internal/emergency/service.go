package emergency

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"GuardianSOS/internal/analysis"
	"GuardianSOS/internal/geocode"
	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/metrics"
	"GuardianSOS/pkg/scheduler"
	"GuardianSOS/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender is the notification transport used by the fan-out.
type Sender interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Submitter runs background jobs; *scheduler.Pool implements it.
type Submitter interface {
	Submit(job scheduler.Job) bool
}

type Deps struct {
	DB             *gorm.DB
	Classifier     *analysis.Classifier
	Geocoder       geocode.Geocoder
	GeocodeTimeout time.Duration
	Sender         Sender
	Pool           Submitter
	Store          storage.Store
	StoreTimeout   time.Duration
	Metrics        *metrics.Metrics
	Events         EventSink
}

// Service creates alerts, drives their status and fans out notifications.
type Service struct {
	db             *gorm.DB
	classifier     *analysis.Classifier
	geocoder       geocode.Geocoder
	geocodeTimeout time.Duration
	sender         Sender
	pool           Submitter
	store          storage.Store
	storeTimeout   time.Duration
	metrics        *metrics.Metrics
	events         EventSink
	locks          alertLocks
	now            func() time.Time
}

// persistTimeout bounds the alert and location writes, which do not follow
// the caller's cancellation.
const persistTimeout = 10 * time.Second

func NewService(d Deps) *Service {
	if d.Classifier == nil {
		d.Classifier = analysis.NewClassifier(nil, 0)
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = 10 * time.Second
	}
	return &Service{
		db:             d.DB,
		classifier:     d.Classifier,
		geocoder:       d.Geocoder,
		geocodeTimeout: d.GeocodeTimeout,
		sender:         d.Sender,
		pool:           d.Pool,
		store:          d.Store,
		storeTimeout:   d.StoreTimeout,
		metrics:        d.Metrics,
		events:         d.Events,
		now:            time.Now,
	}
}

// CreateAlertRequest is what a device submits.
type CreateAlertRequest struct {
	DeviceID        string  `json:"deviceId"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AudioData       string  `json:"audioData"`
	AudioTranscript string  `json:"audioTranscript"`
	AdditionalInfo  string  `json:"additionalInfo"`
}

// CreateEmergencyAlert persists a PENDING alert plus a location record and
// queues the contact fan-out. It returns before any notification is sent.
func (s *Service) CreateEmergencyAlert(ctx context.Context, req CreateAlertRequest) (*AlertView, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return nil, errors.Validation("장치 ID는 필수입니다")
	}
	logger.Info("creating emergency alert", zap.String("deviceId", deviceID))

	user, err := models.GetUserByDeviceID(s.db.WithContext(ctx), deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("등록되지 않은 장치입니다: %s", deviceID)
		}
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	}

	start := time.Now()
	res := s.classifier.Classify(ctx, req.AudioTranscript)
	s.observe("classify", start)
	if res.Fallback != "" && s.metrics != nil {
		s.metrics.RecordClassifierFallback(res.Fallback)
	}

	start = time.Now()
	address, _ := geocode.Resolve(ctx, s.geocoder, req.Latitude, req.Longitude, s.geocodeTimeout)
	s.observe("geocode", start)

	// 设备断开或放弃请求后告警仍要落库，只有分析和地理编码跟随调用方取消
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	alert := &models.EmergencyAlert{
		UserID:            user.ID,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Address:           address,
		AudioTranscript:   req.AudioTranscript,
		AudioURL:          s.storeAudio(pctx, user.ID, req.AudioData),
		SituationAnalysis: res.Analysis,
		EmergencyType:     res.Type,
		Status:            models.StatusPending,
		AdditionalInfo:    req.AdditionalInfo,
		NotificationSent:  false,
		AlertTime:         s.now(),
	}
	loc := &models.LocationHistory{
		UserID:    user.ID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   address,
		Accuracy:  models.AccuracyGPS,
	}
	if err := models.CreateAlertWithLocation(s.db.WithContext(pctx), alert, loc); err != nil {
		return nil, errors.Infrastructure(err, "긴급 알림 저장 실패")
	}
	logger.Info("emergency alert saved",
		zap.Uint("alertId", alert.ID),
		zap.Uint("userId", user.ID),
		zap.String("type", string(alert.EmergencyType)))

	if s.metrics != nil {
		s.metrics.RecordAlertCreated(string(alert.EmergencyType))
	}
	s.emit(pctx, EventCreated, alert)
	s.submitNotify(alert.ID)

	return NewAlertView(alert, user), nil
}

// storeAudio 上传原始音频，失败只记录日志
func (s *Service) storeAudio(ctx context.Context, userID uint, data string) *string {
	if s.store == nil || strings.TrimSpace(data) == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		logger.Warn("audio data is not valid base64, skipping upload", zap.Uint("userId", userID), zap.Error(err))
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	key := fmt.Sprintf("audio/%d/%s.wav", userID, uuid.NewString())
	if err := s.store.Write(sctx, key, bytes.NewReader(raw), "audio/wav"); err != nil {
		logger.Warn("audio upload failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	u := s.store.PublicURL(key)
	return &u
}

func (s *Service) submitNotify(alertID uint) {
	job := scheduler.FuncJob(func(ctx context.Context) {
		_ = s.Notify(ctx, alertID)
	})
	if s.pool == nil {
		go job.Run(context.Background())
		return
	}
	if !s.pool.Submit(job) {
		logger.Warn("notify queue full, running fan-out on overflow goroutine", zap.Uint("alertId", alertID))
	}
}

// ListUserAlerts 最新的在前
func (s *Service) ListUserAlerts(ctx context.Context, userID uint) ([]*AlertView, error) {
	db := s.db.WithContext(ctx)
	user, err := models.GetUserByID(db, userID)
	if err != nil {
		return nil, s.lookupErr(err, "사용자를 찾을 수 없습니다: %d", userID)
	}
	alerts, err := models.ListAlertsByUser(db, userID)
	if err != nil {
		return nil, errors.Infrastructure(err, "긴급 알림 조회 실패")
	}
	views := make([]*AlertView, 0, len(alerts))
	for i := range alerts {
		views = append(views, NewAlertView(&alerts[i], user))
	}
	return views, nil
}

// GetAlert returns one alert of userID; alerts of other users are PermissionDenied.
func (s *Service) GetAlert(ctx context.Context, userID, alertID uint) (*AlertView, error) {
	a, err := models.GetAlert(s.db.WithContext(ctx), alertID)
	if err != nil {
		return nil, s.lookupErr(err, "긴급 알림을 찾을 수 없습니다: %d", alertID)
	}
	if a.UserID != userID {
		return nil, errNotOwner()
	}
	return s.view(ctx, a)
}

// SearchAlerts 管理端查询：按状态，或按时间范围
func (s *Service) SearchAlerts(ctx context.Context, status models.AlertStatus, start, end time.Time) ([]*AlertView, error) {
	db := s.db.WithContext(ctx)
	var (
		alerts []models.EmergencyAlert
		err    error
	)
	switch {
	case status != "":
		if !status.Valid() {
			return nil, errors.Validation("알 수 없는 상태입니다: %s", status)
		}
		alerts, err = models.ListAlertsByStatus(db, status)
	case !start.IsZero() && !end.IsZero():
		if end.Before(start) {
			return nil, errors.Validation("종료 시각이 시작 시각보다 빠릅니다")
		}
		alerts, err = models.ListAlertsBetween(db, start, end)
	default:
		return nil, errors.Validation("status 또는 기간을 지정해야 합니다")
	}
	if err != nil {
		return nil, errors.Infrastructure(err, "긴급 알림 조회 실패")
	}

	users := make(map[uint]*models.User)
	views := make([]*AlertView, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		u, ok := users[a.UserID]
		if !ok {
			u, _ = models.GetUserByID(db, a.UserID)
			users[a.UserID] = u
		}
		views = append(views, NewAlertView(a, u))
	}
	return views, nil
}

// ResolveAlert closes the alert from any state. notificationSent and the
// notification message are left as they were.
func (s *Service) ResolveAlert(ctx context.Context, userID, alertID uint) (*AlertView, error) {
	logger.Info("resolving emergency alert", zap.Uint("userId", userID), zap.Uint("alertId", alertID))
	a, err := s.mutate(ctx, alertID, func(a *models.EmergencyAlert) error {
		if a.UserID != userID {
			return errNotOwner()
		}
		models.ResolveAlert(a, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

// MarkFalseAlarm 仅未结束的告警可标记为误报
func (s *Service) MarkFalseAlarm(ctx context.Context, userID, alertID uint) (*AlertView, error) {
	a, err := s.mutate(ctx, alertID, func(a *models.EmergencyAlert) error {
		if a.UserID != userID {
			return errNotOwner()
		}
		if a.Status.Terminal() {
			return errors.Validation("이미 종료된 알림입니다: %s", a.Status.Description())
		}
		models.MarkFalseAlarm(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

// MarkInProgress NOTIFIED -> IN_PROGRESS
func (s *Service) MarkInProgress(ctx context.Context, userID, alertID uint) (*AlertView, error) {
	a, err := s.mutate(ctx, alertID, func(a *models.EmergencyAlert) error {
		if a.UserID != userID {
			return errNotOwner()
		}
		if a.Status != models.StatusNotified {
			return errors.Validation("알림 발송된 상태에서만 처리중으로 변경할 수 있습니다: %s", a.Status.Description())
		}
		models.ApplyAlertStatus(a, models.StatusInProgress, a.NotificationMessage, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

// UpdateAlertStatus is the system-side status write: notificationSent follows
// the status, the message is replaced and resolvedTime is set only for RESOLVED.
func (s *Service) UpdateAlertStatus(ctx context.Context, alertID uint, status models.AlertStatus, message string) (*models.EmergencyAlert, error) {
	if !status.Valid() {
		return nil, errors.Validation("알 수 없는 상태입니다: %s", status)
	}
	return s.mutate(ctx, alertID, func(a *models.EmergencyAlert) error {
		models.ApplyAlertStatus(a, status, message, s.now())
		return nil
	})
}

// RefreshPendingGauge 定时刷新待处理告警数
func (s *Service) RefreshPendingGauge(ctx context.Context) error {
	n, err := models.CountAlertsByStatus(s.db.WithContext(ctx), models.StatusPending)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SetPendingAlerts(n)
	}
	return nil
}

// mutate is the only path that writes alert status.
func (s *Service) mutate(ctx context.Context, alertID uint, fn func(a *models.EmergencyAlert) error) (*models.EmergencyAlert, error) {
	unlock := s.locks.lock(alertID)
	a, err := models.MutateAlert(s.db.WithContext(ctx), alertID, fn)
	unlock()
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, s.lookupErr(err, "긴급 알림을 찾을 수 없습니다: %d", alertID)
	}
	s.emit(ctx, EventStatus, a)
	return a, nil
}

func (s *Service) view(ctx context.Context, a *models.EmergencyAlert) (*AlertView, error) {
	u, err := models.GetUserByID(s.db.WithContext(ctx), a.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Infrastructure(err, "사용자 조회 실패")
	}
	return NewAlertView(a, u), nil
}

func (s *Service) emit(ctx context.Context, typ string, a *models.EmergencyAlert) {
	if s.events == nil {
		return
	}
	s.events.AlertChanged(ctx, newEvent(typ, a, s.now()))
}

func (s *Service) observe(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (s *Service) lookupErr(err error, format string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(format, id)
	}
	return errors.Infrastructure(err, "데이터베이스 오류")
}

func errNotOwner() error {
	return errors.PermissionDenied("해당 알림을 처리할 권한이 없습니다")
}
