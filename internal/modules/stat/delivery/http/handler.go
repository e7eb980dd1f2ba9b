package http

import (
	"net/http"

	"anoa.com/gamification/internal/modules/stat/dto"
	statService "anoa.com/gamification/internal/modules/stat/service"
	"anoa.com/gamification/pkg/response"
	"anoa.com/gamification/pkg/validator"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{
		statService: statService,
	}
}

func (h *StatHandler) GetStatistics(c *gin.Context) {
	var query dto.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	stats, err := h.statService.GetStatistics(c.Request.Context(), query.Period)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
