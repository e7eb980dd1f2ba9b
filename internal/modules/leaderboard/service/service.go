package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"anoa.com/gamification/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/gamification/internal/modules/leaderboard/repository"
	levelingService "anoa.com/gamification/internal/modules/leveling/service"
	"anoa.com/gamification/pkg/apperror"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type LeaderboardService interface {
	// GetLeaderboard never writes. Results may lag the ledger by the cache TTL.
	GetLeaderboard(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error)
}

type Options struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

type leaderboardService struct {
	repo  leaderboardRepo.LeaderboardRepository
	calc  levelingService.Calculator
	cache Cache
	group singleflight.Group
	opts  Options
}

// NewLeaderboardService builds the aggregator. cache may be nil.
func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, calc levelingService.Calculator, cache Cache, opts Options) LeaderboardService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &leaderboardService{
		repo:  repo,
		calc:  calc,
		cache: cache,
		opts:  opts,
	}
}

func normalizeQuery(query dto.LeaderboardQuery) (dto.LeaderboardQuery, error) {
	if query.Type == "" {
		query.Type = BoardXP
	}
	if query.Period == "" {
		query.Period = PeriodAllTime
	}
	if query.Limit <= 0 {
		query.Limit = DefaultLimit
	}
	if query.Limit > MaxLimit {
		query.Limit = MaxLimit
	}

	switch query.Type {
	case BoardXP, BoardLevel, BoardAchievements, BoardStreaks:
	default:
		return query, apperror.Validation(fmt.Sprintf("unknown leaderboard type %q", query.Type))
	}
	switch query.Period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime:
	default:
		return query, apperror.Validation(fmt.Sprintf("unknown leaderboard period %q", query.Period))
	}
	return query, nil
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	start, bounded := WindowStart(query.Period, now)

	var key string
	if bounded {
		key = fmt.Sprintf("leaderboard:%s:%s:%d:%d", query.Type, query.Period, query.Limit, start.Unix())
	} else {
		key = fmt.Sprintf("leaderboard:%s:%s:%d", query.Type, query.Period, query.Limit)
	}

	if s.cache != nil {
		var cached dto.LeaderboardResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			slog.Warn("Leaderboard cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		if hit {
			return &cached, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		var since *time.Time
		if bounded {
			since = &start
		}

		resp, err := s.build(ctx, query, since, now)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, key, resp, s.opts.CacheTTL); err != nil {
				slog.Warn("Leaderboard cache write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*dto.LeaderboardResponse), nil
}

func (s *leaderboardService) build(ctx context.Context, query dto.LeaderboardQuery, since *time.Time, now time.Time) (*dto.LeaderboardResponse, error) {
	var (
		rows []leaderboardRepo.Row
		err  error
	)

	switch query.Type {
	case BoardXP:
		rows, err = s.repo.XP(ctx, since, query.Limit)
	case BoardLevel:
		if since == nil {
			rows, err = s.repo.Levels(ctx, query.Limit)
		} else {
			rows, err = s.levelsGained(ctx, *since)
		}
	case BoardAchievements:
		rows, err = s.repo.Achievements(ctx, since, query.Limit)
	case BoardStreaks:
		rows, err = s.repo.Streaks(ctx, since, query.Limit)
	}
	if err != nil {
		return nil, err
	}

	rankRows(rows)
	if len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}

	labelled := since != nil && (query.Type == BoardXP || query.Type == BoardLevel)

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entry := dto.LeaderboardEntry{
			Position:    i + 1,
			UserID:      row.UserID,
			Username:    row.Username,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
			Score:       row.Score,
			TotalXP:     row.TotalXP,
			Level:       row.Level,
			LevelName:   row.LevelName,
			LevelTier:   row.LevelTier,
		}
		if labelled {
			entry.ActivityLabel = activityLabel(row.WindowXP)
		}
		entries = append(entries, entry)
	}

	return &dto.LeaderboardResponse{
		Type:        query.Type,
		Period:      query.Period,
		WindowStart: since,
		GeneratedAt: now,
		Entries:     entries,
	}, nil
}

// levelsGained scores each user active in the window by the levels their window XP bought.
func (s *leaderboardService) levelsGained(ctx context.Context, since time.Time) ([]leaderboardRepo.Row, error) {
	rows, err := s.repo.XP(ctx, &since, 0)
	if err != nil {
		return nil, err
	}

	gained := rows[:0]
	for _, row := range rows {
		before := row.TotalXP - row.WindowXP
		if before < 0 {
			before = 0
		}
		levels := s.calc.LevelForXP(row.TotalXP).Level - s.calc.LevelForXP(before).Level
		if levels <= 0 {
			continue
		}
		row.Score = int64(levels)
		gained = append(gained, row)
	}
	return gained, nil
}
