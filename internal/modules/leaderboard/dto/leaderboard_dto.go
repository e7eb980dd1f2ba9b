package dto

import (
	"time"

	"github.com/google/uuid"
)

type LeaderboardQuery struct {
	Type   string `form:"type" binding:"omitempty,oneof=xp level achievements streaks"`
	Period string `form:"period" binding:"omitempty,oneof=daily weekly monthly yearly all_time"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// LeaderboardEntry is one ranked user. Position is 1-based with no gaps.
type LeaderboardEntry struct {
	Position      int       `json:"position"`
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	Score         int64     `json:"score"`
	TotalXP       int64     `json:"total_xp"`
	Level         int       `json:"level"`
	LevelName     string    `json:"level_name"`
	LevelTier     string    `json:"level_tier"`
	ActivityLabel string    `json:"activity_label,omitempty"`
}

type LeaderboardResponse struct {
	Type        string             `json:"type"`
	Period      string             `json:"period"`
	WindowStart *time.Time         `json:"window_start,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Entries     []LeaderboardEntry `json:"entries"`
}
