package http

import (
	"net/http"
	"time"

	streakService "anoa.com/gamification/internal/modules/streak/service"
	"anoa.com/gamification/pkg/response"
	"github.com/gin-gonic/gin"
)

type StreakHandler struct {
	service streakService.StreakService
}

func NewStreakHandler(service streakService.StreakService) *StreakHandler {
	return &StreakHandler{service: service}
}

func (h *StreakHandler) GetMyStreaks(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	streaks, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": streaks})
}

// Sweep deactivates lapsed streaks now instead of waiting for the scheduler.
func (h *StreakHandler) Sweep(c *gin.Context) {
	count, err := h.service.SweepInactive(c.Request.Context(), time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deactivated": count}})
}
