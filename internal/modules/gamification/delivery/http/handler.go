package http

import (
	"net/http"

	"anoa.com/gamification/internal/modules/gamification/dto"
	gamificationService "anoa.com/gamification/internal/modules/gamification/service"
	streakDto "anoa.com/gamification/internal/modules/streak/dto"
	"anoa.com/gamification/pkg/response"
	"anoa.com/gamification/pkg/validator"
	"github.com/gin-gonic/gin"
)

// EventHandler receives events from trusted upstream services.
type EventHandler struct {
	engine gamificationService.Engine
}

func NewEventHandler(engine gamificationService.Engine) *EventHandler {
	return &EventHandler{engine: engine}
}

func (h *EventHandler) AwardXP(c *gin.Context) {
	var input dto.AwardXPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.engine.AwardXP(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": result})
}

func (h *EventHandler) RecordActivity(c *gin.Context) {
	var input streakDto.RecordActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.engine.RecordActivity(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
