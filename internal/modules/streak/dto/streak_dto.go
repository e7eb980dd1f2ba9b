package dto

import "time"

type RecordActivityInput struct {
	UserID       string         `json:"user_id" binding:"required,uuid"`
	StreakType   string         `json:"streak_type" binding:"required,max=50"`
	ActivityDate *string        `json:"activity_date" binding:"omitempty,datetime=2006-01-02"`
	Metadata     map[string]any `json:"metadata"`
}

type StreakResult struct {
	StreakType        string  `json:"streak_type"`
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	TotalCompletions  int     `json:"total_completions"`
	Status            string  `json:"status"`
	NextMilestone     *int    `json:"next_milestone"`
	MilestonesReached []int   `json:"milestones_reached"`
	Multiplier        float64 `json:"streak_multiplier"`
	BonusXPAwarded    int     `json:"bonus_xp_awarded"`
}

type StreakResponse struct {
	StreakType       string     `json:"streak_type"`
	Period           string     `json:"period"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	TotalCompletions int        `json:"total_completions"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	StreakStartDate  *time.Time `json:"streak_start_date,omitempty"`
	IsActive         bool       `json:"is_active"`
	Multiplier       float64    `json:"streak_multiplier"`
	Milestones       []int      `json:"milestones"`
	NextMilestone    *int       `json:"next_milestone"`
}
