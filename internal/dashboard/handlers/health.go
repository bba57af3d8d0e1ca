package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kestrelnet/socks5gate/internal/dashboard/models"
)

// Health godoc
// @Summary Health check
// @Description Returns dashboard and audit-trail health
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.auditDB != nil {
		if err := h.auditDB.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "audit database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Proxy and host statistics
// @Description Returns proxy traffic counters plus host CPU/memory usage
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	memStats := models.MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := models.CPUStats{NumCPU: runtime.NumCPU()}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	snap := h.store.GlobalSnapshot()

	c.JSON(http.StatusOK, models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		Proxy: models.GlobalStatsResponse{
			TotalConnections:   snap.TotalConnections,
			TotalBytes:         snap.TotalBytes,
			CurrentConnections: snap.CurrentConnections,
			CurrentBytes:       snap.CurrentBytes,
			PeakConnections:    snap.PeakConnections,
			StartTime:          snap.StartTime,
		},
	})
}
