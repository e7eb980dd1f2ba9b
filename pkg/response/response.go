package response

import (
	"errors"
	"log/slog"
	"net/http"

	"anoa.com/gamification/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	str, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ParseUUIDParam reads a path parameter that must be a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(name + " must be a valid UUID")
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code == http.StatusInternalServerError {
		slog.Error("Internal error",
			slog.String("path", c.FullPath()),
			slog.Any("error", err))
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}

	if code == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(code, gin.H{"error": appErr.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// OK wraps payload in the {"data": ...} envelope.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, gin.H{"data": payload})
}
