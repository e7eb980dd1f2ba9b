package repository

import (
	"context"
	"time"

	"anoa.com/gamification/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StreakRepository interface {
	// Update runs apply with the (user, type) row locked, creating an empty row first if needed.
	Update(ctx context.Context, userID uuid.UUID, streakType, period string, apply func(streak *entity.Streak) error) (*entity.Streak, error)
	Find(ctx context.Context, userID uuid.UUID, streakType string) (*entity.Streak, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Streak, error)
	// DeactivateStale flips rows whose last activity is older than the cutoff for their period.
	DeactivateStale(ctx context.Context, cutoffs map[string]time.Time) (int64, error)
	// CountActive counts running streaks whose last activity is on or after the cutoff for their period.
	CountActive(ctx context.Context, cutoffs map[string]time.Time) (int64, error)
}

type streakRepository struct {
	db *gorm.DB
}

func NewStreakRepository(db *gorm.DB) StreakRepository {
	return &streakRepository{db: db}
}

func (r *streakRepository) Update(ctx context.Context, userID uuid.UUID, streakType, period string, apply func(streak *entity.Streak) error) (*entity.Streak, error) {
	var streak entity.Streak

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := &entity.Streak{UserID: userID, StreakType: streakType, Period: period}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "streak_type"}},
			DoNothing: true,
		}).Create(seed).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND streak_type = ?", userID, streakType).
			First(&streak).Error; err != nil {
			return err
		}

		if err := apply(&streak); err != nil {
			return err
		}

		return tx.Save(&streak).Error
	})
	if err != nil {
		return nil, err
	}

	return &streak, nil
}

// Find returns nil without error when the user has no streak of that type.
func (r *streakRepository) Find(ctx context.Context, userID uuid.UUID, streakType string) (*entity.Streak, error) {
	var streaks []entity.Streak
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND streak_type = ?", userID, streakType).
		Limit(1).
		Find(&streaks).Error; err != nil {
		return nil, err
	}
	if len(streaks) == 0 {
		return nil, nil
	}
	return &streaks[0], nil
}

func (r *streakRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Streak, error) {
	var streaks []entity.Streak
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND last_activity_date IS NOT NULL", userID).
		Order("current_streak desc, streak_type asc").
		Find(&streaks).Error
	return streaks, err
}

func (r *streakRepository) DeactivateStale(ctx context.Context, cutoffs map[string]time.Time) (int64, error) {
	var total int64
	for period, cutoff := range cutoffs {
		res := r.db.WithContext(ctx).Model(&entity.Streak{}).
			Where("is_active = ? AND period = ? AND last_activity_date < ?", true, period, cutoff).
			Updates(map[string]any{
				"is_active":         false,
				"current_streak":    0,
				"streak_multiplier": 1,
			})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *streakRepository) CountActive(ctx context.Context, cutoffs map[string]time.Time) (int64, error) {
	var total int64
	for period, cutoff := range cutoffs {
		var count int64
		err := r.db.WithContext(ctx).Model(&entity.Streak{}).
			Where("is_active = ? AND current_streak > 0 AND period = ? AND last_activity_date >= ?", true, period, cutoff).
			Count(&count).Error
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}
