package http

import (
	"net/http"

	"anoa.com/gamification/internal/modules/achievement/dto"
	achievementService "anoa.com/gamification/internal/modules/achievement/service"
	"anoa.com/gamification/pkg/response"
	"anoa.com/gamification/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AchievementHandler struct {
	service achievementService.TrackerService
}

func NewAchievementHandler(service achievementService.TrackerService) *AchievementHandler {
	return &AchievementHandler{service: service}
}

func (h *AchievementHandler) GetAchievements(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.ListAchievementsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.ListForUser(c.Request.Context(), userID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AchievementHandler) CreateAchievement(c *gin.Context) {
	var input dto.CreateAchievementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	achievement, err := h.service.CreateAchievement(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": achievement})
}

func (h *AchievementHandler) UpdateAchievement(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateAchievementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	achievement, err := h.service.UpdateAchievement(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": achievement})
}

func (h *AchievementHandler) UpdateProgress(c *gin.Context) {
	var input dto.UpdateProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.UpdateProgress(
		c.Request.Context(),
		uuid.MustParse(input.UserID),
		uuid.MustParse(input.AchievementID),
		input.Delta,
		dto.ProgressContext{EventType: "manual_progress", Data: input.Context},
	)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *AchievementHandler) Reindex(c *gin.Context) {
	if err := h.service.ReindexCatalog(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "achievement catalog reindexed"})
}
