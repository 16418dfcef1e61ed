package emergency

import (
	"time"

	"GuardianSOS/internal/models"
)

// AlertView is the API representation of an alert joined with its owner.
type AlertView struct {
	ID                       uint                 `json:"id"`
	UserID                   uint                 `json:"userId"`
	UserName                 string               `json:"userName"`
	UserPhoneNumber          string               `json:"userPhoneNumber"`
	Latitude                 float64              `json:"latitude"`
	Longitude                float64              `json:"longitude"`
	Address                  string               `json:"address"`
	AudioTranscript          string               `json:"audioTranscript"`
	AudioURL                 *string              `json:"audioUrl,omitempty"`
	SituationAnalysis        string               `json:"situationAnalysis"`
	EmergencyType            models.EmergencyType `json:"emergencyType"`
	EmergencyTypeDescription string               `json:"emergencyTypeDescription"`
	Status                   models.AlertStatus   `json:"status"`
	StatusDescription        string               `json:"statusDescription"`
	AdditionalInfo           string               `json:"additionalInfo"`
	NotificationSent         bool                 `json:"notificationSent"`
	NotificationMessage      string               `json:"notificationMessage"`
	AlertTime                time.Time            `json:"alertTime"`
	ResolvedTime             *time.Time           `json:"resolvedTime"`
}

func NewAlertView(a *models.EmergencyAlert, u *models.User) *AlertView {
	v := &AlertView{
		ID:                       a.ID,
		UserID:                   a.UserID,
		Latitude:                 a.Latitude,
		Longitude:                a.Longitude,
		Address:                  a.Address,
		AudioTranscript:          a.AudioTranscript,
		AudioURL:                 a.AudioURL,
		SituationAnalysis:        a.SituationAnalysis,
		EmergencyType:            a.EmergencyType,
		EmergencyTypeDescription: a.EmergencyType.Description(),
		Status:                   a.Status,
		StatusDescription:        a.Status.Description(),
		AdditionalInfo:           a.AdditionalInfo,
		NotificationSent:         a.NotificationSent,
		NotificationMessage:      a.NotificationMessage,
		AlertTime:                a.AlertTime,
		ResolvedTime:             a.ResolvedTime,
	}
	if u != nil {
		v.UserName = u.Name
		v.UserPhoneNumber = u.PhoneNumber
	}
	return v
}
