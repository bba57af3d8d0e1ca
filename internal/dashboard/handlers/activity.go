package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kestrelnet/socks5gate/internal/dashboard/models"
)

const defaultActivityLimit = 50

// Activity godoc
// @Summary Recent connection activity
// @Description Returns the most recent connection lifecycle events from the audit trail, newest first
// @Tags activity
// @Produce json
// @Param limit query int false "Maximum number of events to return"
// @Success 200 {object} models.ActivityResponse
// @Router /activity [get]
func (h *Handler) Activity(c *gin.Context) {
	if h.auditDB == nil {
		c.JSON(http.StatusOK, models.ActivityResponse{Events: []models.ActivityEventResponse{}, Count: 0})
		return
	}

	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	events, err := h.auditDB.RecentConnectionEvents(limit)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("dashboard: fetch recent connection events", "error", err)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read activity"})
		return
	}

	out := make([]models.ActivityEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, models.ActivityEventResponse{
			ConnID:     e.ConnID,
			OccurredAt: e.OccurredAt,
			Event:      e.Event,
			Username:   e.Username,
			PeerAddr:   e.PeerAddr,
			DestHost:   e.DestHost,
			DestPort:   e.DestPort,
			Bytes:      e.Bytes,
		})
	}

	c.JSON(http.StatusOK, models.ActivityResponse{Events: out, Count: len(out)})
}
