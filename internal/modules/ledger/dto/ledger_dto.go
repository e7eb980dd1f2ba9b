package dto

import (
	"time"

	levelingService "anoa.com/gamification/internal/modules/leveling/service"
	"github.com/google/uuid"
)

// AwardInput is one XP grant. Multiplier 0 means 1.0.
type AwardInput struct {
	UserID      uuid.UUID
	Amount      int
	EventType   string
	Category    string
	Description string
	SourceType  string
	SourceID    string
	Metadata    map[string]any
	Multiplier  float64
}

type AwardResult struct {
	EventID       *uuid.UUID             `json:"event_id,omitempty"`
	FinalXP       int                    `json:"final_xp"`
	NewTotalXP    int64                  `json:"new_total_xp"`
	NewLevel      int                    `json:"new_level"`
	PreviousLevel int                    `json:"previous_level"`
	LeveledUp     bool                   `json:"leveled_up"`
	Duplicate     bool                   `json:"duplicate"`
	Status        levelingService.Status `json:"level_status"`
}

type EventResponse struct {
	ID              uuid.UUID      `json:"id"`
	EventType       string         `json:"event_type"`
	EventCategory   string         `json:"event_category"`
	Description     string         `json:"description"`
	BaseXPAmount    int            `json:"base_xp_amount"`
	BonusMultiplier float64        `json:"bonus_multiplier"`
	FinalXP         int            `json:"final_xp"`
	SourceType      string         `json:"source_type,omitempty"`
	SourceID        string         `json:"source_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type ReconcileResult struct {
	UserID        uuid.UUID              `json:"user_id"`
	PreviousTotal int64                  `json:"previous_total_xp"`
	LedgerTotal   int64                  `json:"ledger_total_xp"`
	Corrected     bool                   `json:"corrected"`
	Status        levelingService.Status `json:"level_status"`
}
