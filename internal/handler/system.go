package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type healthReport struct {
	Status     string  `json:"status"`
	Database   string  `json:"database"`
	Goroutines int     `json:"goroutines"`
	MemUsedPct float64 `json:"memUsedPercent,omitempty"`
	CPUPct     float64 `json:"cpuPercent,omitempty"`
	CheckedAt  string  `json:"checkedAt"`
}

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	report := healthReport{
		Status:     "healthy",
		Database:   "up",
		Goroutines: runtime.NumGoroutine(),
		CheckedAt:  time.Now().Format(time.RFC3339),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemUsedPct = vm.UsedPercent
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		report.CPUPct = pct[0]
	}

	// 检查数据库连接
	if err := h.PingDB(c.Request.Context()); err != nil {
		report.Status = "unhealthy"
		report.Database = "down"
		c.JSON(http.StatusServiceUnavailable, response.Response{Success: false, Message: err.Error(), Data: report})
		return
	}
	response.Success(c, "ok", report)
}

// PingDB is also used by the gRPC health probe.
func (h *Handlers) PingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
