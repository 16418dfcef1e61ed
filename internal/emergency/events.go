package emergency

import (
	"context"
	"time"

	"GuardianSOS/internal/models"
)

const (
	EventCreated = "alert.created"
	EventStatus  = "alert.status"
)

// Event describes an alert after a write.
type Event struct {
	Type              string             `json:"type"`
	AlertID           uint               `json:"alertId"`
	UserID            uint               `json:"userId"`
	Status            models.AlertStatus `json:"status"`
	StatusDescription string             `json:"statusDescription"`
	NotificationSent  bool               `json:"notificationSent"`
	Message           string             `json:"message,omitempty"`
	At                time.Time          `json:"at"`
}

// EventSink receives alert events. Implementations must not block.
type EventSink interface {
	AlertChanged(ctx context.Context, ev Event)
}

func newEvent(typ string, a *models.EmergencyAlert, at time.Time) Event {
	return Event{
		Type:              typ,
		AlertID:           a.ID,
		UserID:            a.UserID,
		Status:            a.Status,
		StatusDescription: a.Status.Description(),
		NotificationSent:  a.NotificationSent,
		Message:           a.NotificationMessage,
		At:                at,
	}
}
