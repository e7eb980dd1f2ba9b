package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/internal/modules/ledger/dto"
	ledgerRepo "anoa.com/gamification/internal/modules/ledger/repository"
	levelingService "anoa.com/gamification/internal/modules/leveling/service"
	notifService "anoa.com/gamification/internal/modules/notification/service"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	"anoa.com/gamification/pkg/database"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
)

const MaxMultiplier = 10.0

type LedgerService interface {
	Award(ctx context.Context, input dto.AwardInput) (*dto.AwardResult, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*dto.ReconcileResult, error)
	RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]dto.EventResponse, error)
	// CurrentStatus never writes. Users without XP get the level 1 status.
	CurrentStatus(ctx context.Context, userID uuid.UUID) (levelingService.Status, error)
	// GlobalRank is one more than the number of users with strictly more XP.
	GlobalRank(ctx context.Context, totalXP int64) (int64, error)
}

type Options struct {
	MaxXPPerEvent int
	Retry         database.RetryPolicy
	Now           func() time.Time
}

type ledgerService struct {
	repo          ledgerRepo.LedgerRepository
	userRepo      userRepo.UserRepository
	calc          levelingService.Calculator
	notifications notifService.NotificationService
	sanitizer     *bluemonday.Policy
	opts          Options
}

func NewLedgerService(
	repo ledgerRepo.LedgerRepository,
	userRepo userRepo.UserRepository,
	calc levelingService.Calculator,
	notifications notifService.NotificationService,
	opts Options,
) LedgerService {
	if opts.MaxXPPerEvent <= 0 {
		opts.MaxXPPerEvent = 10000
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = database.DefaultRetryPolicy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &ledgerService{
		repo:          repo,
		userRepo:      userRepo,
		calc:          calc,
		notifications: notifications,
		sanitizer:     bluemonday.StrictPolicy(),
		opts:          opts,
	}
}

func (s *ledgerService) validate(input *dto.AwardInput) error {
	if input.Amount <= 0 {
		return apperror.InvalidAmount("amount must be positive")
	}
	// Engine bonuses are sized by the catalog and rules file, only caller amounts are capped.
	if !IsEngineSource(input.SourceType) && input.Amount > s.opts.MaxXPPerEvent {
		return apperror.InvalidAmount(fmt.Sprintf("amount must be between 1 and %d", s.opts.MaxXPPerEvent))
	}
	if !IsKnownEventType(input.EventType) {
		return apperror.Validation(fmt.Sprintf("unknown event_type %q", input.EventType))
	}
	if input.Multiplier == 0 {
		input.Multiplier = 1
	}
	if input.Multiplier < 0 || input.Multiplier > MaxMultiplier || math.IsNaN(input.Multiplier) {
		return apperror.Validation(fmt.Sprintf("multiplier must be in (0, %.0f]", MaxMultiplier))
	}
	if input.SourceID != "" && input.SourceType == "" {
		return apperror.Validation("source_type is required when source_id is set")
	}
	return nil
}

func (s *ledgerService) Award(ctx context.Context, input dto.AwardInput) (*dto.AwardResult, error) {
	// 1. Reject bad input before touching state
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	// 2. The user must exist upstream
	exists, err := s.userRepo.Exists(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrUnknownUser
	}

	category := input.Category
	if category == "" {
		category = defaultCategory(input.EventType)
	}

	event := &entity.XpEvent{
		UserID:          input.UserID,
		EventType:       input.EventType,
		EventCategory:   category,
		Description:     s.sanitizer.Sanitize(input.Description),
		BaseXPAmount:    input.Amount,
		BonusMultiplier: input.Multiplier,
		FinalXP:         int(math.Round(float64(input.Amount) * input.Multiplier)),
		SourceType:      input.SourceType,
		SourceID:        input.SourceID,
		Metadata:        datatypes.JSONMap(input.Metadata),
	}

	// 3. Append and recompute the level under the user's row lock
	var (
		result    dto.AwardResult
		level     *entity.UserLevel
		duplicate bool
	)
	err = database.WithRetry(ctx, s.opts.Retry, func() error {
		now := s.opts.Now()
		event.CreatedAt = now

		var txErr error
		level, duplicate, txErr = s.repo.Append(ctx, event, func(current *entity.UserLevel) error {
			result.PreviousLevel = current.Level
			status := s.calc.LevelForXP(current.TotalXP + int64(event.FinalXP))
			applyStatus(current, status)
			if status.Level > result.PreviousLevel {
				current.LastLevelUp = &now
			}
			return nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	status := s.calc.LevelForXP(level.TotalXP)
	result.NewTotalXP = level.TotalXP
	result.NewLevel = level.Level
	result.Status = status

	if duplicate {
		slog.Info("Duplicate XP award ignored",
			slog.String("user_id", input.UserID.String()),
			slog.String("source_type", input.SourceType),
			slog.String("source_id", input.SourceID))

		result.Duplicate = true
		result.PreviousLevel = level.Level
		return &result, nil
	}

	result.EventID = &event.ID
	result.FinalXP = event.FinalXP
	result.LeveledUp = result.NewLevel > result.PreviousLevel

	slog.Info("XP awarded",
		slog.String("user_id", input.UserID.String()),
		slog.String("event_type", input.EventType),
		slog.Int("final_xp", event.FinalXP),
		slog.Int64("total_xp", level.TotalXP))

	// 4. Level up side effect, after commit
	if result.LeveledUp && s.notifications != nil {
		s.notifications.Notify(ctx, input.UserID, entity.NotificationLevelUp,
			fmt.Sprintf("Level up! You reached level %d (%s)", status.Level, status.LevelName),
			map[string]any{
				"previous_level": result.PreviousLevel,
				"new_level":      status.Level,
				"tier":           status.LevelTier,
				"total_xp":       level.TotalXP,
			})
	}

	return &result, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, userID uuid.UUID) (*dto.ReconcileResult, error) {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrUnknownUser
	}

	result := &dto.ReconcileResult{UserID: userID}
	var level *entity.UserLevel
	err = database.WithRetry(ctx, s.opts.Retry, func() error {
		var txErr error
		level, txErr = s.repo.Rebuild(ctx, userID, func(current *entity.UserLevel, ledgerSum int64) error {
			result.PreviousTotal = current.TotalXP
			result.LedgerTotal = ledgerSum
			previousLevel := current.Level

			status := s.calc.LevelForXP(ledgerSum)
			applyStatus(current, status)
			if status.Level > previousLevel {
				now := s.opts.Now()
				current.LastLevelUp = &now
			}
			return nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	result.Corrected = result.PreviousTotal != result.LedgerTotal
	result.Status = s.calc.LevelForXP(level.TotalXP)

	if result.Corrected {
		slog.Warn("User level reconciled against ledger",
			slog.String("user_id", userID.String()),
			slog.Int64("previous_total_xp", result.PreviousTotal),
			slog.Int64("ledger_total_xp", result.LedgerTotal))
	}

	return result, nil
}

func (s *ledgerService) RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]dto.EventResponse, error) {
	if limit <= 0 {
		return []dto.EventResponse{}, nil
	}

	events, err := s.repo.RecentEvents(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, dto.EventResponse{
			ID:              e.ID,
			EventType:       e.EventType,
			EventCategory:   e.EventCategory,
			Description:     e.Description,
			BaseXPAmount:    e.BaseXPAmount,
			BonusMultiplier: e.BonusMultiplier,
			FinalXP:         e.FinalXP,
			SourceType:      e.SourceType,
			SourceID:        e.SourceID,
			Metadata:        e.Metadata,
			CreatedAt:       e.CreatedAt,
		})
	}
	return responses, nil
}

func (s *ledgerService) CurrentStatus(ctx context.Context, userID uuid.UUID) (levelingService.Status, error) {
	level, err := s.repo.FindLevel(ctx, userID)
	if err != nil {
		return levelingService.Status{}, err
	}
	if level == nil {
		return s.calc.LevelForXP(0), nil
	}
	return s.calc.LevelForXP(level.TotalXP), nil
}

func (s *ledgerService) GlobalRank(ctx context.Context, totalXP int64) (int64, error) {
	above, err := s.repo.CountUsersAbove(ctx, totalXP)
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

// applyStatus is the only place level columns are written.
func applyStatus(level *entity.UserLevel, status levelingService.Status) {
	level.TotalXP = status.TotalXP
	level.Level = status.Level
	level.LevelName = status.LevelName
	level.LevelTier = status.LevelTier
	level.CurrentLevelXP = status.CurrentLevelXP
	level.NextLevelXP = status.NextLevelXP
	level.XPToNextLevel = status.XPToNextLevel
}
