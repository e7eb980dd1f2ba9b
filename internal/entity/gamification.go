package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// XpEvent is one append-only ledger entry.
type XpEvent struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_xp_events_user_created,priority:1;uniqueIndex:idx_xp_events_source,priority:1,where:source_id <> ''" json:"user_id"`
	EventType       string            `gorm:"size:50;not null" json:"event_type"`
	EventCategory   string            `gorm:"size:50" json:"event_category"`
	Description     string            `gorm:"type:text" json:"description"`
	BaseXPAmount    int               `gorm:"not null" json:"base_xp_amount"`
	BonusMultiplier float64           `gorm:"not null;default:1" json:"bonus_multiplier"`
	FinalXP         int               `gorm:"not null" json:"final_xp"`
	SourceType      string            `gorm:"size:50;uniqueIndex:idx_xp_events_source,priority:2,where:source_id <> ''" json:"source_type"`
	SourceID        string            `gorm:"size:100;uniqueIndex:idx_xp_events_source,priority:3,where:source_id <> ''" json:"source_id"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;index:idx_xp_events_user_created,priority:2;index" json:"created_at"`
}

func (e *XpEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// UserLevel is the per-user aggregate. Level fields are always the
// calculator's output for TotalXP.
type UserLevel struct {
	UserID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	TotalXP        int64      `gorm:"not null;default:0;index" json:"total_xp"`
	Level          int        `gorm:"not null;default:1" json:"level"`
	LevelName      string     `gorm:"size:50" json:"level_name"`
	LevelTier      string     `gorm:"size:20" json:"level_tier"`
	CurrentLevelXP int64      `gorm:"not null;default:0" json:"current_level_xp"`
	NextLevelXP    int64      `gorm:"not null;default:0" json:"next_level_xp"`
	XPToNextLevel  int64      `gorm:"not null;default:0" json:"xp_to_next_level"`
	LastLevelUp    *time.Time `json:"last_level_up,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	AchievementTypeMilestone   = "milestone"
	AchievementTypeEngagement  = "engagement"
	AchievementTypeRevenue     = "revenue"
	AchievementTypeSocial      = "social"
	AchievementTypeStreak      = "streak"
	AchievementTypeProgression = "progression"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyHard      = "hard"
	DifficultyLegendary = "legendary"
)

// Counting rule kinds for AchievementRequirements.Rule.
const (
	RuleCountEvents = "count_events"
	RuleSumField    = "sum_field"
	RuleReachValue  = "reach_value"
)

type AchievementRequirements struct {
	Target     float64  `json:"target"`
	Rule       string   `json:"rule"`
	EventTypes []string `json:"event_types,omitempty"`
	Field      string   `json:"field,omitempty"`
}

type AchievementRewards struct {
	XP    int    `json:"xp"`
	Badge string `json:"badge,omitempty"`
}

type Achievement struct {
	ID              uuid.UUID                                   `gorm:"type:uuid;primaryKey" json:"id"`
	Slug            string                                      `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Name            string                                      `gorm:"size:100;not null" json:"name"`
	Description     string                                      `gorm:"type:text" json:"description"`
	Type            string                                      `gorm:"size:30;not null;index" json:"type"`
	Category        string                                      `gorm:"size:50;index" json:"category"`
	Difficulty      string                                      `gorm:"size:20;not null" json:"difficulty"`
	Points          int                                         `gorm:"not null;default:0" json:"points"`
	Requirements    datatypes.JSONType[AchievementRequirements] `gorm:"type:jsonb;not null" json:"requirements"`
	Rewards         datatypes.JSONType[AchievementRewards]      `gorm:"type:jsonb;not null" json:"rewards"`
	IsRepeatable    bool                                        `gorm:"not null;default:false" json:"is_repeatable"`
	MaxCompletions  *int                                        `json:"max_completions,omitempty"`
	UnlockCondition *uuid.UUID                                  `gorm:"type:uuid" json:"unlock_condition,omitempty"`
	IsActive        bool                                        `gorm:"not null" json:"is_active"`
	ExpiresAt       *time.Time                                  `json:"expires_at,omitempty"`
	CreatedAt       time.Time                                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ProgressEntry is one step of a UserAchievement's audit trail.
type ProgressEntry struct {
	Delta     float64        `json:"delta"`
	Progress  float64        `json:"progress"`
	EventType string         `json:"event_type,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	At        time.Time      `json:"at"`
}

type UserAchievement struct {
	ID              uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID   uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_id"`
	Achievement     *Achievement                        `gorm:"foreignKey:AchievementID;constraint:OnDelete:CASCADE" json:"achievement,omitempty"`
	Progress        float64                             `gorm:"not null;default:0" json:"progress"`
	Target          float64                             `gorm:"not null" json:"target"`
	Completed       bool                                `gorm:"not null;default:false" json:"completed"`
	CompletionCount int                                 `gorm:"not null;default:0" json:"completion_count"`
	CompletedAt     *time.Time                          `gorm:"index" json:"completed_at,omitempty"`
	ProgressData    datatypes.JSONType[[]ProgressEntry] `gorm:"type:jsonb" json:"progress_data"`
	CreatedAt       time.Time                           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	return nil
}

// AchievementCompletion logs one completion cycle, so windows can count repeats.
type AchievementCompletion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_completion,priority:1" json:"user_id"`
	AchievementID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_completion,priority:2" json:"achievement_id"`
	Cycle         int       `gorm:"not null;uniqueIndex:idx_achievement_completion,priority:3" json:"cycle"`
	CompletedAt   time.Time `gorm:"not null;index" json:"completed_at"`
}

func (c *AchievementCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"
)

type Streak struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_user_streak_type,priority:1" json:"user_id"`
	StreakType       string                    `gorm:"size:50;not null;uniqueIndex:idx_user_streak_type,priority:2" json:"streak_type"`
	Period           string                    `gorm:"size:10;not null;default:daily" json:"period"`
	CurrentStreak    int                       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int                       `gorm:"not null;default:0" json:"longest_streak"`
	TotalCompletions int                       `gorm:"not null;default:0" json:"total_completions"`
	LastActivityDate *time.Time                `gorm:"type:date" json:"last_activity_date,omitempty"`
	StreakStartDate  *time.Time                `gorm:"type:date" json:"streak_start_date,omitempty"`
	IsActive         bool                      `gorm:"not null;default:true;index" json:"is_active"`
	StreakMultiplier float64                   `gorm:"not null;default:1" json:"streak_multiplier"`
	Milestones       datatypes.JSONType[[]int] `gorm:"type:jsonb" json:"milestones"`
	CreatedAt        time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Streak) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
