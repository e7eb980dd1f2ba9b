package service

import (
	"context"
	"math"
	"sort"

	"anoa.com/gamification/internal/entity"
	achievementService "anoa.com/gamification/internal/modules/achievement/service"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"
	levelingService "anoa.com/gamification/internal/modules/leveling/service"
	notifService "anoa.com/gamification/internal/modules/notification/service"
	"anoa.com/gamification/internal/modules/profile/dto"
	streakDto "anoa.com/gamification/internal/modules/streak/dto"
	streakService "anoa.com/gamification/internal/modules/streak/service"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ProfileService interface {
	// GetProfile never writes. includePrivate adds the unread notification count.
	GetProfile(ctx context.Context, userID uuid.UUID, includePrivate bool) (*dto.ProfileResponse, error)
}

type profileService struct {
	userRepo      userRepo.UserRepository
	ledger        ledgerService.LedgerService
	tracker       achievementService.TrackerService
	streaks       streakService.StreakService
	notifications notifService.NotificationService
	recentEvents  int
}

func NewProfileService(
	userRepo userRepo.UserRepository,
	ledger ledgerService.LedgerService,
	tracker achievementService.TrackerService,
	streaks streakService.StreakService,
	notifications notifService.NotificationService,
	recentEvents int,
) ProfileService {
	return &profileService{
		userRepo:      userRepo,
		ledger:        ledger,
		tracker:       tracker,
		streaks:       streaks,
		notifications: notifications,
		recentEvents:  recentEvents,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID, includePrivate bool) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	var (
		status   levelingService.Status
		progress []entity.UserAchievement
		streaks  []streakDto.StreakResponse
		events   []ledgerDto.EventResponse
		unread   int64
		rank     int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if status, err = s.ledger.CurrentStatus(gctx, userID); err != nil {
			return err
		}
		rank, err = s.ledger.GlobalRank(gctx, status.TotalXP)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = s.tracker.UserProgress(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		streaks, err = s.streaks.ListForUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.ledger.RecentEvents(gctx, userID, s.recentEvents)
		return err
	})
	if includePrivate && s.notifications != nil {
		g.Go(func() error {
			var err error
			unread, err = s.notifications.UnreadCount(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.ProfileResponse{
		User:         toUserSummary(user),
		Level:        status,
		Rank:         rank,
		Achievements: splitAchievements(progress),
		Streaks:      streaks,
		RecentEvents: events,
	}
	if resp.Streaks == nil {
		resp.Streaks = []streakDto.StreakResponse{}
	}
	if resp.RecentEvents == nil {
		resp.RecentEvents = []ledgerDto.EventResponse{}
	}
	if includePrivate {
		resp.UnreadNotifications = &unread
	}

	return resp, nil
}

func toUserSummary(user *entity.User) dto.UserSummary {
	return dto.UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Role:        user.Role.Name,
		CreatedAt:   user.CreatedAt,
	}
}

// splitAchievements files rows completed at least once under completed.
// Rows with no progress are left out.
func splitAchievements(rows []entity.UserAchievement) dto.AchievementSummary {
	summary := dto.AchievementSummary{
		Completed:  []dto.ProfileAchievement{},
		InProgress: []dto.ProfileAchievement{},
	}
	for _, ua := range rows {
		if ua.Achievement == nil {
			continue
		}
		a := ua.Achievement
		item := dto.ProfileAchievement{
			ID:              a.ID,
			Slug:            a.Slug,
			Name:            a.Name,
			Category:        a.Category,
			Difficulty:      a.Difficulty,
			Points:          a.Points,
			Progress:        ua.Progress,
			Target:          ua.Target,
			CompletionCount: ua.CompletionCount,
			CompletedAt:     ua.CompletedAt,
		}

		switch {
		case ua.CompletionCount > 0:
			item.Percent = 100
			summary.Completed = append(summary.Completed, item)
			summary.Points += item.Points * ua.CompletionCount
		case ua.Progress > 0:
			if ua.Target > 0 {
				item.Percent = math.Round(ua.Progress/ua.Target*10000) / 100
			}
			summary.InProgress = append(summary.InProgress, item)
		}
	}

	sort.SliceStable(summary.Completed, func(i, j int) bool {
		a, b := summary.Completed[i].CompletedAt, summary.Completed[j].CompletedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	sort.SliceStable(summary.InProgress, func(i, j int) bool {
		return summary.InProgress[i].Percent > summary.InProgress[j].Percent
	})

	return summary
}
