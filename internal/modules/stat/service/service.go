package service

import (
	"context"
	"fmt"
	"time"

	achievementRepo "anoa.com/gamification/internal/modules/achievement/repository"
	leaderboardService "anoa.com/gamification/internal/modules/leaderboard/service"
	ledgerRepo "anoa.com/gamification/internal/modules/ledger/repository"
	"anoa.com/gamification/internal/modules/stat/dto"
	streakRepo "anoa.com/gamification/internal/modules/streak/repository"
	streakService "anoa.com/gamification/internal/modules/streak/service"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	"golang.org/x/sync/errgroup"
)

type StatService interface {
	GetStatistics(ctx context.Context, period string) (*dto.Statistics, error)
}

type statService struct {
	userRepo        userRepo.UserRepository
	ledgerRepo      ledgerRepo.LedgerRepository
	achievementRepo achievementRepo.AchievementRepository
	streakRepo      streakRepo.StreakRepository
	now             func() time.Time
}

func NewStatService(
	userRepo userRepo.UserRepository,
	ledgerRepo ledgerRepo.LedgerRepository,
	achievementRepo achievementRepo.AchievementRepository,
	streakRepo streakRepo.StreakRepository,
	now func() time.Time,
) StatService {
	if now == nil {
		now = time.Now
	}
	return &statService{
		userRepo:        userRepo,
		ledgerRepo:      ledgerRepo,
		achievementRepo: achievementRepo,
		streakRepo:      streakRepo,
		now:             now,
	}
}

func (s *statService) GetStatistics(ctx context.Context, period string) (*dto.Statistics, error) {
	if period == "" {
		period = leaderboardService.PeriodAllTime
	}

	now := s.now()
	start, bounded := leaderboardService.WindowStart(period, now)
	if !bounded && period != leaderboardService.PeriodAllTime {
		return nil, apperror.Validation(fmt.Sprintf("unknown period %q", period))
	}

	stats := &dto.Statistics{Period: period}
	if bounded {
		stats.WindowStart = &start
	}

	// all_time: the zero time precedes every row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalUsers, err = s.userRepo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.XPAwarded, stats.ActiveUsers, err = s.ledgerRepo.SumSince(gctx, start)
		return err
	})
	g.Go(func() error {
		var err error
		stats.LevelUps, err = s.ledgerRepo.CountLevelUpsSince(gctx, start)
		return err
	})
	g.Go(func() error {
		var err error
		stats.AchievementsCompleted, err = s.achievementRepo.CountCompletedSince(gctx, start)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ActiveStreaks, err = s.streakRepo.CountActive(gctx, streakService.StaleCutoffs(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
