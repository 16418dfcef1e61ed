package handlers

import (
	"net/http"
	"time"

	"GuardianSOS/internal/location"
	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
)

// adminRequired 需在 authRequired 之后
func (h *Handlers) adminRequired(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if user.Role != models.RoleAdmin {
		response.AbortWithStatus(c, http.StatusForbidden, h.msg(c, "forbidden"))
		return
	}
	c.Next()
}

// handleSearchAlerts GET /admin/alerts?status=PENDING 或 ?startDate=&endDate=
func (h *Handlers) handleSearchAlerts(c *gin.Context) {
	var start, end time.Time
	if c.Query("startDate") != "" || c.Query("endDate") != "" {
		var err error
		if start, err = location.ParseTime("startDate", c.Query("startDate")); err != nil {
			response.Error(c, err)
			return
		}
		if end, err = location.ParseTime("endDate", c.Query("endDate")); err != nil {
			response.Error(c, err)
			return
		}
	}
	views, err := h.emergency.SearchAlerts(c.Request.Context(), models.AlertStatus(c.Query("status")), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "alert_list"), views)
}
