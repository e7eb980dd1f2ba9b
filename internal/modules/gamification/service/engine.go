package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	achievementDto "anoa.com/gamification/internal/modules/achievement/dto"
	achievementService "anoa.com/gamification/internal/modules/achievement/service"
	"anoa.com/gamification/internal/modules/gamification/dto"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"
	streakDto "anoa.com/gamification/internal/modules/streak/dto"
	streakService "anoa.com/gamification/internal/modules/streak/service"
	"anoa.com/gamification/pkg/apperror"
	"github.com/google/uuid"
)

// EventStreakUpdated is the event achievements see after an accepted streak activity.
const EventStreakUpdated = "streak_updated"

// Engine is the entry point for everything upstream services report.
// Achievement bonuses and streak milestones go to the ledger directly, so
// every event that reaches the tracker through here is a root event.
type Engine interface {
	AwardXP(ctx context.Context, input dto.AwardXPInput) (*dto.AwardXPResult, error)
	RecordActivity(ctx context.Context, input streakDto.RecordActivityInput) (*dto.ActivityResult, error)
}

type engine struct {
	ledger  ledgerService.LedgerService
	tracker achievementService.TrackerService
	streaks streakService.StreakService
}

func NewEngine(
	ledger ledgerService.LedgerService,
	tracker achievementService.TrackerService,
	streaks streakService.StreakService,
) Engine {
	return &engine{
		ledger:  ledger,
		tracker: tracker,
		streaks: streaks,
	}
}

func (e *engine) AwardXP(ctx context.Context, input dto.AwardXPInput) (*dto.AwardXPResult, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return nil, apperror.Validation("user_id must be a valid UUID")
	}
	if ledgerService.IsEngineSource(input.SourceType) {
		return nil, apperror.Validation(fmt.Sprintf("source_type %q is reserved", input.SourceType))
	}

	multiplier := 1.0
	if input.StreakType != "" {
		multiplier, err = e.streaks.MultiplierFor(ctx, userID, input.StreakType)
		if err != nil {
			return nil, err
		}
	}

	award, err := e.ledger.Award(ctx, ledgerDto.AwardInput{
		UserID:      userID,
		Amount:      input.Amount,
		EventType:   input.EventType,
		Category:    input.Category,
		Description: input.Description,
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		Metadata:    input.Metadata,
		Multiplier:  multiplier,
	})
	if err != nil {
		return nil, err
	}

	result := &dto.AwardXPResult{
		AwardResult:  *award,
		Achievements: []achievementDto.ProgressResult{},
	}

	// a replayed event was evaluated the first time round
	if award.Duplicate {
		return result, nil
	}

	eventData := make(map[string]any, len(input.Metadata)+4)
	for k, v := range input.Metadata {
		eventData[k] = v
	}
	eventData["amount"] = input.Amount
	eventData["final_xp"] = award.FinalXP
	eventData["total_xp"] = award.NewTotalXP
	eventData["level"] = award.NewLevel

	result.Achievements = e.checkAchievements(ctx, userID, input.EventType, eventData)
	return result, nil
}

func (e *engine) RecordActivity(ctx context.Context, input streakDto.RecordActivityInput) (*dto.ActivityResult, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return nil, apperror.Validation("user_id must be a valid UUID")
	}

	var activityDate *time.Time
	if input.ActivityDate != nil && *input.ActivityDate != "" {
		parsed, err := time.Parse(time.DateOnly, *input.ActivityDate)
		if err != nil {
			return nil, apperror.Validation("activity_date must be formatted as YYYY-MM-DD")
		}
		activityDate = &parsed
	}

	streak, err := e.streaks.UpdateStreak(ctx, userID, input.StreakType, activityDate)
	if err != nil {
		return nil, err
	}

	result := &dto.ActivityResult{
		Streak:       *streak,
		Achievements: []achievementDto.ProgressResult{},
	}
	if streak.Status == streakService.StatusUnchanged {
		return result, nil
	}

	eventData := make(map[string]any, len(input.Metadata)+2)
	for k, v := range input.Metadata {
		eventData[k] = v
	}
	eventData["streak_type"] = streak.StreakType
	eventData["current_streak"] = streak.CurrentStreak

	result.Achievements = e.checkAchievements(ctx, userID, EventStreakUpdated, eventData)
	return result, nil
}

// checkAchievements never fails the caller: the triggering state change is
// already committed.
func (e *engine) checkAchievements(ctx context.Context, userID uuid.UUID, eventType string, data map[string]any) []achievementDto.ProgressResult {
	results, err := e.tracker.CheckAchievements(ctx, userID, eventType, data)
	if err != nil {
		slog.Error("Achievement evaluation failed",
			slog.String("user_id", userID.String()),
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
	if results == nil {
		return []achievementDto.ProgressResult{}
	}
	return results
}
