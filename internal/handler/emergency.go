package handlers

import (
	"context"
	"strconv"

	"GuardianSOS/internal/emergency"
	"GuardianSOS/internal/listeners"
	"GuardianSOS/internal/validation"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// alertRequest 设备上报体；坐标范围在此校验，服务层不做限制
type alertRequest struct {
	DeviceID        string   `json:"deviceId" binding:"required"`
	Latitude        *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	AudioData       string   `json:"audioData"`
	AudioTranscript string   `json:"audioTranscript"`
	AdditionalInfo  string   `json:"additionalInfo"`
}

var alertMessages = validation.Messages{
	"deviceId.required":  "장치 ID는 필수입니다",
	"latitude.required":  "위도는 필수입니다",
	"latitude.gte":       "위도는 -90 ~ 90 범위여야 합니다",
	"latitude.lte":       "위도는 -90 ~ 90 범위여야 합니다",
	"longitude.required": "경도는 필수입니다",
	"longitude.gte":      "경도는 -180 ~ 180 범위여야 합니다",
	"longitude.lte":      "경도는 -180 ~ 180 범위여야 합니다",
}

func (h *Handlers) handleCreateAlert(c *gin.Context) {
	var req alertRequest
	if !h.bindJSON(c, &req, alertMessages) {
		return
	}
	view, err := h.emergency.CreateEmergencyAlert(c.Request.Context(), emergency.CreateAlertRequest{
		DeviceID:        req.DeviceID,
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		AudioData:       req.AudioData,
		AudioTranscript: req.AudioTranscript,
		AdditionalInfo:  req.AdditionalInfo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "alert_created"), view)
}

func (h *Handlers) handleListAlerts(c *gin.Context) {
	views, err := h.emergency.ListUserAlerts(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "alert_list"), views)
}

func (h *Handlers) handleGetAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.emergency.GetAlert(c.Request.Context(), currentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "alert_detail"), view)
}

func (h *Handlers) handleResolveAlert(c *gin.Context) {
	h.alertTransition(c, h.emergency.ResolveAlert, "alert_resolved")
}

func (h *Handlers) handleFalseAlarm(c *gin.Context) {
	h.alertTransition(c, h.emergency.MarkFalseAlarm, "alert_false_alarm")
}

func (h *Handlers) handleInProgress(c *gin.Context) {
	h.alertTransition(c, h.emergency.MarkInProgress, "alert_in_progress")
}

type transitionFunc func(ctx context.Context, userID, alertID uint) (*emergency.AlertView, error)

func (h *Handlers) alertTransition(c *gin.Context, fn transitionFunc, msgKey string) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := fn(c.Request.Context(), currentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, msgKey), view)
}

// handleAlertStream 推送当前用户的告警状态变化（SSE）
func (h *Handlers) handleAlertStream(c *gin.Context) {
	uid := currentUser(c)
	clientID := strconv.FormatUint(uint64(uid), 10) + ":" + uuid.NewString()
	h.hub.Serve(c, clientID, listeners.UserGroup(uid))
}
