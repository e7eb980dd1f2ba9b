package dto

import (
	"time"

	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	levelingService "anoa.com/gamification/internal/modules/leveling/service"
	streakDto "anoa.com/gamification/internal/modules/streak/dto"
	"github.com/google/uuid"
)

type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProfileAchievement struct {
	ID              uuid.UUID  `json:"id"`
	Slug            string     `json:"slug"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Difficulty      string     `json:"difficulty"`
	Points          int        `json:"points"`
	Progress        float64    `json:"progress"`
	Target          float64    `json:"target"`
	Percent         float64    `json:"percent"`
	CompletionCount int        `json:"completion_count"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type AchievementSummary struct {
	Completed  []ProfileAchievement `json:"completed"`
	InProgress []ProfileAchievement `json:"in_progress"`
	Points     int                  `json:"points"`
}

// ProfileResponse is the read-only view of a user's gamification state.
// UnreadNotifications is only filled for the user's own profile.
type ProfileResponse struct {
	User                UserSummary                `json:"user"`
	Level               levelingService.Status     `json:"level"`
	Rank                int64                      `json:"rank"`
	Achievements        AchievementSummary         `json:"achievements"`
	Streaks             []streakDto.StreakResponse `json:"streaks"`
	RecentEvents        []ledgerDto.EventResponse  `json:"recent_events"`
	UnreadNotifications *int64                     `json:"unread_notifications,omitempty"`
}
