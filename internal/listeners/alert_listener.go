package listeners

import (
	"context"
	"strconv"

	"GuardianSOS/internal/emergency"
	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/sse"

	"go.uber.org/zap"
)

// UserGroup SSE 分组名，每个用户一个
func UserGroup(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// AlertListener pushes alert events to the owner's SSE stream.
type AlertListener struct {
	hub *sse.Hub
}

func NewAlertListener(hub *sse.Hub) *AlertListener {
	return &AlertListener{hub: hub}
}

func (l *AlertListener) AlertChanged(ctx context.Context, ev emergency.Event) {
	logger.Debug("alert event",
		zap.String("type", ev.Type),
		zap.Uint("alertId", ev.AlertID),
		zap.String("status", string(ev.Status)))
	if l.hub == nil {
		return
	}
	if err := l.hub.PublishJSON(UserGroup(ev.UserID), ev.Type, ev); err != nil {
		logger.Warn("publish alert event failed", zap.Uint("alertId", ev.AlertID), zap.Error(err))
	}
}
