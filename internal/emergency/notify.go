package emergency

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

const (
	MsgNoContacts   = "긴급 연락처 미등록 - 알림 전송 실패"
	MsgNotifyFailed = "알림 전송 중 오류 발생"
)

// NotifiedMessage 发送完成后的状态说明
func NotifiedMessage(successCount int) string {
	return fmt.Sprintf("%d명의 긴급 연락처에게 알림 전송 완료", successCount)
}

// Notify sends the alert to every active contact of its owner in priority
// order and records the outcome on the alert. Per-contact send failures are
// logged and skipped. Any other failure, including a panic, puts the alert
// back to PENDING and is returned.
func (s *Service) Notify(ctx context.Context, alertID uint) (err error) {
	start := time.Now()
	logger.Info("notification fan-out started", zap.Uint("alertId", alertID))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify panic: %v", r)
			logger.Error("notification fan-out panic",
				zap.Uint("alertId", alertID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
		if err != nil {
			logger.Error("notification fan-out failed", zap.Uint("alertId", alertID), zap.Error(err))
			s.finishNotify(ctx, alertID, models.StatusPending, MsgNotifyFailed)
		}
		s.observe("notify", start)
	}()
	return s.fanOut(ctx, alertID)
}

func (s *Service) fanOut(ctx context.Context, alertID uint) error {
	db := s.db.WithContext(ctx)
	alert, err := models.GetAlert(db, alertID)
	if err != nil {
		return s.lookupErr(err, "긴급 알림을 찾을 수 없습니다: %d", alertID)
	}
	user, err := models.GetUserByID(db, alert.UserID)
	if err != nil {
		return s.lookupErr(err, "사용자를 찾을 수 없습니다: %d", alert.UserID)
	}
	contacts, err := models.ListActiveContacts(db, alert.UserID)
	if err != nil {
		return errors.Infrastructure(err, "긴급 연락처 조회 실패")
	}

	if len(contacts) == 0 {
		logger.Warn("user has no emergency contacts", zap.Uint("userId", alert.UserID), zap.Uint("alertId", alertID))
		s.finishNotify(ctx, alertID, models.StatusNotified, MsgNoContacts)
		return nil
	}

	message := BuildMessage(alert, user)
	success := 0
	for _, c := range contacts {
		if s.sender == nil {
			break
		}
		if c.PhoneNumber != "" {
			if err := s.sender.SendSMS(ctx, c.PhoneNumber, message); err != nil {
				logger.Error("sms to contact failed", zap.Uint("contactId", c.ID), zap.Error(err))
			} else {
				success++
			}
		}
		if c.Email != "" {
			if err := s.sender.SendEmail(ctx, c.Email, EmailSubject, message); err != nil {
				logger.Warn("email to contact failed", zap.Uint("contactId", c.ID), zap.Error(err))
			}
		}
	}

	s.finishNotify(ctx, alertID, models.StatusNotified, NotifiedMessage(success))
	logger.Info("notification fan-out finished",
		zap.Uint("alertId", alertID),
		zap.Int("success", success),
		zap.Int("contacts", len(contacts)))
	return nil
}

// finishNotify records the fan-out result. The status is only applied while
// the alert is still PENDING; a status the owner set in the meantime is kept
// and only the message is updated.
func (s *Service) finishNotify(ctx context.Context, alertID uint, status models.AlertStatus, message string) {
	_, err := s.mutate(ctx, alertID, func(a *models.EmergencyAlert) error {
		if a.Status == models.StatusPending {
			models.ApplyAlertStatus(a, status, message, s.now())
		} else {
			a.NotificationMessage = message
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to record notification result",
			zap.Uint("alertId", alertID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
