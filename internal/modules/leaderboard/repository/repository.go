package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Row is one scored user. Score meaning depends on the board.
type Row struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
	AvatarURL   *string
	Score       int64
	WindowXP    int64
	TotalXP     int64
	Level       int
	LevelName   string
	LevelTier   string
	ReachedAt   time.Time
}

// LeaderboardRepository reads aggregates only. A nil since means all time,
// a limit of 0 means no limit.
type LeaderboardRepository interface {
	XP(ctx context.Context, since *time.Time, limit int) ([]Row, error)
	Levels(ctx context.Context, limit int) ([]Row, error)
	Achievements(ctx context.Context, since *time.Time, limit int) ([]Row, error)
	Streaks(ctx context.Context, since *time.Time, limit int) ([]Row, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

const (
	userColumns  = "u.username, u.display_name, u.avatar_url"
	levelColumns = "COALESCE(ul.total_xp, 0) AS total_xp, COALESCE(ul.level, 1) AS level, COALESCE(ul.level_name, '') AS level_name, COALESCE(ul.level_tier, '') AS level_tier"
	groupColumns = "u.username, u.display_name, u.avatar_url, ul.total_xp, ul.level, ul.level_name, ul.level_tier"
	rankOrder    = "score DESC, total_xp DESC, reached_at ASC"
)

func withLimit(query *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return query.Limit(limit)
	}
	return query
}

func (r *leaderboardRepository) XP(ctx context.Context, since *time.Time, limit int) ([]Row, error) {
	var rows []Row

	if since == nil {
		query := r.db.WithContext(ctx).Table("user_levels ul").
			Select("ul.user_id, "+userColumns+", ul.total_xp AS score, ul.total_xp AS window_xp, "+levelColumns+", ul.updated_at AS reached_at").
			Joins("JOIN users u ON u.id = ul.user_id").
			Where("ul.total_xp > 0").
			Order(rankOrder + ", ul.user_id ASC")
		err := withLimit(query, limit).Scan(&rows).Error
		return rows, err
	}

	query := r.db.WithContext(ctx).Table("xp_events e").
		Select("e.user_id, "+userColumns+", SUM(e.final_xp) AS score, SUM(e.final_xp) AS window_xp, "+levelColumns+", MAX(e.created_at) AS reached_at").
		Joins("JOIN users u ON u.id = e.user_id").
		Joins("LEFT JOIN user_levels ul ON ul.user_id = e.user_id").
		Where("e.created_at >= ?", *since).
		Group("e.user_id, " + groupColumns).
		Having("SUM(e.final_xp) > 0").
		Order(rankOrder + ", e.user_id ASC")
	err := withLimit(query, limit).Scan(&rows).Error
	return rows, err
}

func (r *leaderboardRepository) Levels(ctx context.Context, limit int) ([]Row, error) {
	var rows []Row
	query := r.db.WithContext(ctx).Table("user_levels ul").
		Select("ul.user_id, "+userColumns+", ul.level AS score, "+levelColumns+", COALESCE(ul.last_level_up, ul.created_at) AS reached_at").
		Joins("JOIN users u ON u.id = ul.user_id").
		Where("ul.total_xp > 0").
		Order(rankOrder + ", ul.user_id ASC")
	err := withLimit(query, limit).Scan(&rows).Error
	return rows, err
}

func (r *leaderboardRepository) Achievements(ctx context.Context, since *time.Time, limit int) ([]Row, error) {
	var rows []Row

	if since == nil {
		query := r.db.WithContext(ctx).Table("user_achievements ua").
			Select("ua.user_id, "+userColumns+", SUM(ua.completion_count) AS score, "+levelColumns+", MAX(ua.completed_at) AS reached_at").
			Joins("JOIN users u ON u.id = ua.user_id").
			Joins("LEFT JOIN user_levels ul ON ul.user_id = ua.user_id").
			Where("ua.completion_count > 0").
			Group("ua.user_id, " + groupColumns).
			Order(rankOrder + ", ua.user_id ASC")
		err := withLimit(query, limit).Scan(&rows).Error
		return rows, err
	}

	query := r.db.WithContext(ctx).Table("achievement_completions ac").
		Select("ac.user_id, "+userColumns+", COUNT(ac.id) AS score, "+levelColumns+", MAX(ac.completed_at) AS reached_at").
		Joins("JOIN users u ON u.id = ac.user_id").
		Joins("LEFT JOIN user_levels ul ON ul.user_id = ac.user_id").
		Where("ac.completed_at >= ?", *since).
		Group("ac.user_id, " + groupColumns).
		Order(rankOrder + ", ac.user_id ASC")

	err := withLimit(query, limit).Scan(&rows).Error
	return rows, err
}

func (r *leaderboardRepository) Streaks(ctx context.Context, since *time.Time, limit int) ([]Row, error) {
	var rows []Row

	query := r.db.WithContext(ctx).Table("streaks s").
		Joins("JOIN users u ON u.id = s.user_id").
		Joins("LEFT JOIN user_levels ul ON ul.user_id = s.user_id").
		Group("s.user_id, " + groupColumns).
		Order(rankOrder + ", s.user_id ASC")

	if since == nil {
		query = query.
			Select("s.user_id, "+userColumns+", MAX(s.longest_streak) AS score, "+levelColumns+", MAX(s.updated_at) AS reached_at").
			Where("s.longest_streak > 0")
	} else {
		query = query.
			Select("s.user_id, "+userColumns+", MAX(s.current_streak) AS score, "+levelColumns+", MAX(s.last_activity_date) AS reached_at").
			Where("s.is_active = ? AND s.current_streak > 0 AND s.last_activity_date >= ?", true, *since)
	}

	err := withLimit(query, limit).Scan(&rows).Error
	return rows, err
}
