package dto

import (
	achievementDto "anoa.com/gamification/internal/modules/achievement/dto"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	streakDto "anoa.com/gamification/internal/modules/streak/dto"
)

type AwardXPInput struct {
	UserID      string         `json:"user_id" binding:"required,uuid"`
	Amount      int            `json:"amount"`
	EventType   string         `json:"event_type" binding:"required,max=50"`
	Category    string         `json:"category" binding:"max=50"`
	Description string         `json:"description" binding:"max=500"`
	SourceType  string         `json:"source_type" binding:"max=50"`
	SourceID    string         `json:"source_id" binding:"max=100"`
	Metadata    map[string]any `json:"metadata"`

	// StreakType applies that streak's multiplier to the amount.
	StreakType string `json:"streak_type" binding:"max=50"`
}

type AwardXPResult struct {
	ledgerDto.AwardResult
	Achievements []achievementDto.ProgressResult `json:"achievements"`
}

type ActivityResult struct {
	Streak       streakDto.StreakResult          `json:"streak"`
	Achievements []achievementDto.ProgressResult `json:"achievements"`
}
