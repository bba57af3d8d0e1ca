package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelnet/socks5gate/internal/dashboard/models"
)

// Users godoc
// @Summary List active users
// @Description Returns the active user table with per-user traffic stats. Passwords are never included.
// @Tags users
// @Produce json
// @Success 200 {object} models.UsersResponse
// @Router /users [get]
func (h *Handler) Users(c *gin.Context) {
	active := h.store.ListActiveUsers()

	out := make([]models.UserResponse, 0, len(active))
	for _, u := range active {
		out = append(out, models.UserResponse{
			Username:              u.Username,
			TotalConnections:      u.Stats.TotalConnections,
			TotalBytes:            u.Stats.TotalBytes,
			CurrentConnections:    u.Stats.CurrentConnections,
			CurrentBytes:          u.Stats.CurrentBytes,
			TotalConnectedSeconds: u.Stats.TotalConnectedSeconds,
		})
	}

	c.JSON(http.StatusOK, models.UsersResponse{Users: out, Count: len(out)})
}
