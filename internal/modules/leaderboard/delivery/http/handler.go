package http

import (
	"net/http"

	"anoa.com/gamification/internal/modules/leaderboard/dto"
	leaderboardService "anoa.com/gamification/internal/modules/leaderboard/service"
	"anoa.com/gamification/pkg/response"
	"anoa.com/gamification/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// GetLeaderboard accepts type (xp, level, achievements, streaks), period
// (daily, weekly, monthly, yearly, all_time) and limit (1-100, default 10).
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leaderboard})
}
