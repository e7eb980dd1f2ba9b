package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"anoa.com/gamification/internal/entity"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"
	notifService "anoa.com/gamification/internal/modules/notification/service"
	"anoa.com/gamification/internal/modules/streak/dto"
	streakRepo "anoa.com/gamification/internal/modules/streak/repository"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	"anoa.com/gamification/pkg/database"
	"github.com/google/uuid"
)

var streakTypePattern = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)

// XPAwarder is the slice of the ledger used for milestone bonuses.
type XPAwarder interface {
	Award(ctx context.Context, input ledgerDto.AwardInput) (*ledgerDto.AwardResult, error)
}

type StreakService interface {
	UpdateStreak(ctx context.Context, userID uuid.UUID, streakType string, activityDate *time.Time) (*dto.StreakResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.StreakResponse, error)
	// MultiplierFor is the XP factor of the user's streak, 1.0 when it has lapsed.
	MultiplierFor(ctx context.Context, userID uuid.UUID, streakType string) (float64, error)
	SweepInactive(ctx context.Context, now time.Time) (int64, error)
}

type Options struct {
	Retry database.RetryPolicy
	Now   func() time.Time
}

type streakService struct {
	repo          streakRepo.StreakRepository
	userRepo      userRepo.UserRepository
	awarder       XPAwarder
	notifications notifService.NotificationService
	policy        Policy
	opts          Options
}

func NewStreakService(
	repo streakRepo.StreakRepository,
	userRepo userRepo.UserRepository,
	awarder XPAwarder,
	notifications notifService.NotificationService,
	policy Policy,
	opts Options,
) StreakService {
	if opts.Retry.Attempts == 0 {
		opts.Retry = database.DefaultRetryPolicy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &streakService{
		repo:          repo,
		userRepo:      userRepo,
		awarder:       awarder,
		notifications: notifications,
		policy:        policy,
		opts:          opts,
	}
}

func (s *streakService) UpdateStreak(ctx context.Context, userID uuid.UUID, streakType string, activityDate *time.Time) (*dto.StreakResult, error) {
	if !streakTypePattern.MatchString(streakType) {
		return nil, apperror.Validation("streak_type must be 1-50 lowercase letters, digits or underscores")
	}

	today := truncateDay(s.opts.Now())
	activity := today
	if activityDate != nil {
		activity = truncateDay(*activityDate)
		if activity.After(today) {
			return nil, apperror.Validation("activity_date cannot be in the future")
		}
	}

	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrUnknownUser
	}

	period := s.policy.PeriodFor(streakType)

	var (
		step   transition
		streak *entity.Streak
	)
	err = database.WithRetry(ctx, s.opts.Retry, func() error {
		var txErr error
		streak, txErr = s.repo.Update(ctx, userID, streakType, period, func(row *entity.Streak) error {
			if row.Period == "" {
				row.Period = period
			}
			step = advance(row, activity, s.policy)
			return nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	result := &dto.StreakResult{
		StreakType:        streakType,
		CurrentStreak:     streak.CurrentStreak,
		LongestStreak:     streak.LongestStreak,
		TotalCompletions:  streak.TotalCompletions,
		Status:            step.Status,
		NextMilestone:     s.policy.NextMilestone(streak.CurrentStreak),
		MilestonesReached: step.NewMilestones,
		Multiplier:        streak.StreakMultiplier,
	}
	if result.MilestonesReached == nil {
		result.MilestonesReached = []int{}
	}

	if step.Status != StatusUnchanged {
		slog.Info("Streak updated",
			slog.String("user_id", userID.String()),
			slog.String("streak_type", streakType),
			slog.String("status", step.Status),
			slog.Int("current_streak", streak.CurrentStreak))
	}

	for _, milestone := range step.NewMilestones {
		result.BonusXPAwarded += s.onMilestone(ctx, userID, streakType, milestone)
	}

	return result, nil
}

func (s *streakService) onMilestone(ctx context.Context, userID uuid.UUID, streakType string, milestone int) int {
	bonus := s.policy.BonusFor(milestone)

	if s.notifications != nil {
		s.notifications.Notify(ctx, userID, entity.NotificationStreakMilestone,
			fmt.Sprintf("%d %s streak reached!", milestone, streakType),
			map[string]any{
				"streak_type": streakType,
				"milestone":   milestone,
				"bonus_xp":    bonus,
			})
	}

	if bonus <= 0 || s.awarder == nil {
		return 0
	}

	res, err := s.awarder.Award(ctx, ledgerDto.AwardInput{
		UserID:      userID,
		Amount:      bonus,
		EventType:   ledgerService.EventStreakMilestone,
		Description: fmt.Sprintf("%d %s streak milestone", milestone, streakType),
		SourceType:  ledgerService.SourceStreakMilestone,
		SourceID:    fmt.Sprintf("streak:%s:%d", streakType, milestone),
		Metadata: map[string]any{
			"streak_type": streakType,
			"milestone":   milestone,
		},
	})
	if err != nil {
		slog.Error("Failed to credit streak milestone bonus",
			slog.String("user_id", userID.String()),
			slog.String("streak_type", streakType),
			slog.Int("milestone", milestone),
			slog.Any("error", err))
		return 0
	}
	if res.Duplicate {
		return 0
	}
	return res.FinalXP
}

func (s *streakService) ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.StreakResponse, error) {
	streaks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	responses := make([]dto.StreakResponse, 0, len(streaks))
	for i := range streaks {
		st := &streaks[i]
		resp := dto.StreakResponse{
			StreakType:       st.StreakType,
			Period:           st.Period,
			CurrentStreak:    st.CurrentStreak,
			LongestStreak:    st.LongestStreak,
			TotalCompletions: st.TotalCompletions,
			LastActivityDate: st.LastActivityDate,
			StreakStartDate:  st.StreakStartDate,
			IsActive:         st.IsActive,
			Multiplier:       st.StreakMultiplier,
			Milestones:       st.Milestones.Data(),
		}
		// show a lapsed streak as broken before the sweep gets to it
		if isStale(st, now) {
			resp.IsActive = false
			resp.CurrentStreak = 0
			resp.Multiplier = 1
		}
		if resp.Milestones == nil {
			resp.Milestones = []int{}
		}
		resp.NextMilestone = s.policy.NextMilestone(resp.CurrentStreak)
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *streakService) MultiplierFor(ctx context.Context, userID uuid.UUID, streakType string) (float64, error) {
	streak, err := s.repo.Find(ctx, userID, streakType)
	if err != nil {
		return 0, err
	}
	if streak == nil || !streak.IsActive || isStale(streak, s.opts.Now()) {
		return 1, nil
	}
	return s.policy.MultiplierFor(streak.CurrentStreak), nil
}

func (s *streakService) SweepInactive(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.DeactivateStale(ctx, StaleCutoffs(now))
	if err != nil {
		return count, err
	}

	slog.Info("Streak sweep finished", slog.Int64("deactivated", count))
	return count, nil
}
