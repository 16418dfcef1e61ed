package handlers

import (
	"GuardianSOS/internal/location"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

func (h *Handlers) handleLocationHistory(c *gin.Context) {
	limit := cast.ToInt(c.DefaultQuery("limit", "10"))
	list, err := h.location.History(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "location_history"), list)
}

func (h *Handlers) handleRecentLocations(c *gin.Context) {
	list, err := h.location.Recent(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "location_history"), list)
}

func (h *Handlers) handleLocationRange(c *gin.Context) {
	start, err := location.ParseTime("startDate", c.Query("startDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := location.ParseTime("endDate", c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.location.Range(c.Request.Context(), currentUser(c), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "location_history"), list)
}
