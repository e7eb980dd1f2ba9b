package dto

import "time"

type StatisticsQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=daily weekly monthly yearly all_time"`
}

type Statistics struct {
	Period                string     `json:"period"`
	WindowStart           *time.Time `json:"window_start,omitempty"`
	TotalUsers            int64      `json:"total_users"`
	ActiveUsers           int64      `json:"active_users"`
	XPAwarded             int64      `json:"xp_awarded"`
	AchievementsCompleted int64      `json:"achievements_completed"`
	ActiveStreaks         int64      `json:"active_streaks"`
	LevelUps              int64      `json:"level_ups"`
}
