package dto

import (
	"time"

	"anoa.com/gamification/internal/entity"
	commonDto "anoa.com/gamification/pkg/dto"
	"github.com/google/uuid"
)

type ListAchievementsQuery struct {
	Category   string `form:"category" binding:"omitempty,max=50"`
	Type       string `form:"type" binding:"omitempty,oneof=milestone engagement revenue social streak progression"`
	Difficulty string `form:"difficulty" binding:"omitempty,oneof=easy medium hard legendary"`
	Completed  *bool  `form:"completed"`
	Search     string `form:"search" binding:"omitempty,max=100"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type RequirementsInput struct {
	Target     float64  `json:"target" binding:"required,gt=0"`
	Rule       string   `json:"rule" binding:"required,oneof=count_events sum_field reach_value"`
	EventTypes []string `json:"event_types"`
	Field      string   `json:"field" binding:"omitempty,max=50"`
}

type RewardsInput struct {
	XP    int    `json:"xp" binding:"gte=0"`
	Badge string `json:"badge" binding:"omitempty,max=100"`
}

type CreateAchievementInput struct {
	Slug            string            `json:"slug" binding:"required,min=3,max=100"`
	Name            string            `json:"name" binding:"required,max=100"`
	Description     string            `json:"description" binding:"omitempty,max=1000"`
	Type            string            `json:"type" binding:"required,oneof=milestone engagement revenue social streak progression"`
	Category        string            `json:"category" binding:"omitempty,max=50"`
	Difficulty      string            `json:"difficulty" binding:"required,oneof=easy medium hard legendary"`
	Requirements    RequirementsInput `json:"requirements" binding:"required"`
	Rewards         RewardsInput      `json:"rewards"`
	IsRepeatable    bool              `json:"is_repeatable"`
	MaxCompletions  *int              `json:"max_completions" binding:"omitempty,min=1"`
	UnlockCondition *uuid.UUID        `json:"unlock_condition"`
	IsActive        *bool             `json:"is_active"`
	ExpiresAt       *time.Time        `json:"expires_at"`
}

type UpdateAchievementInput struct {
	Name            *string            `json:"name" binding:"omitempty,max=100"`
	Description     *string            `json:"description" binding:"omitempty,max=1000"`
	Category        *string            `json:"category" binding:"omitempty,max=50"`
	Difficulty      *string            `json:"difficulty" binding:"omitempty,oneof=easy medium hard legendary"`
	Requirements    *RequirementsInput `json:"requirements"`
	Rewards         *RewardsInput      `json:"rewards"`
	IsRepeatable    *bool              `json:"is_repeatable"`
	MaxCompletions  *int               `json:"max_completions" binding:"omitempty,min=1"`
	UnlockCondition *uuid.UUID         `json:"unlock_condition"`
	IsActive        *bool              `json:"is_active"`
	ExpiresAt       *time.Time         `json:"expires_at"`
}

type UpdateProgressInput struct {
	UserID        string         `json:"user_id" binding:"required,uuid"`
	AchievementID string         `json:"achievement_id" binding:"required,uuid"`
	Delta         float64        `json:"delta" binding:"gte=0"`
	Context       map[string]any `json:"context"`
}

// ProgressContext travels into the progress audit trail.
type ProgressContext struct {
	EventType string
	Data      map[string]any
}

type ProgressResult struct {
	AchievementID   uuid.UUID `json:"achievement_id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Progress        float64   `json:"progress"`
	Target          float64   `json:"target"`
	Completed       bool      `json:"completed"`
	CompletionCount int       `json:"completion_count"`
	JustCompleted   bool      `json:"just_completed"`
	BonusXPAwarded  int       `json:"bonus_xp_awarded"`
	Accepted        bool      `json:"accepted"`
}

type AchievementResponse struct {
	ID              uuid.UUID                      `json:"id"`
	Slug            string                         `json:"slug"`
	Name            string                         `json:"name"`
	Description     string                         `json:"description"`
	Type            string                         `json:"type"`
	Category        string                         `json:"category"`
	Difficulty      string                         `json:"difficulty"`
	Points          int                            `json:"points"`
	Requirements    entity.AchievementRequirements `json:"requirements"`
	Rewards         entity.AchievementRewards      `json:"rewards"`
	IsRepeatable    bool                           `json:"is_repeatable"`
	MaxCompletions  *int                           `json:"max_completions,omitempty"`
	UnlockCondition *uuid.UUID                     `json:"unlock_condition,omitempty"`
	ExpiresAt       *time.Time                     `json:"expires_at,omitempty"`
	UserProgress    *UserProgress                  `json:"user_progress,omitempty"`
}

type UserProgress struct {
	Progress        float64    `json:"progress"`
	Target          float64    `json:"target"`
	Completed       bool       `json:"completed"`
	CompletionCount int        `json:"completion_count"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Percent         float64    `json:"percent"`
}

type PaginatedAchievementResponse struct {
	Data []AchievementResponse `json:"data"`
	Meta commonDto.PageMeta    `json:"meta"`
}
