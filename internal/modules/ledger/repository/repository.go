package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/gamification/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyFunc recomputes the aggregate in place. It runs while the row is locked.
type ApplyFunc func(level *entity.UserLevel) error

type LedgerRepository interface {
	// Append inserts event and updates the owner's aggregate in one transaction.
	// When event carries a source_id already recorded for the user nothing is
	// written and duplicate is true.
	Append(ctx context.Context, event *entity.XpEvent, apply ApplyFunc) (level *entity.UserLevel, duplicate bool, err error)
	// Rebuild replays the ledger sum into the aggregate under the same lock.
	Rebuild(ctx context.Context, userID uuid.UUID, apply func(level *entity.UserLevel, ledgerSum int64) error) (*entity.UserLevel, error)
	FindLevel(ctx context.Context, userID uuid.UUID) (*entity.UserLevel, error)
	RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XpEvent, error)
	CountUsersAbove(ctx context.Context, totalXP int64) (int64, error)
	SumSince(ctx context.Context, since time.Time) (awarded int64, activeUsers int64, err error)
	CountLevelUpsSince(ctx context.Context, since time.Time) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) lockLevel(tx *gorm.DB, userID uuid.UUID) (*entity.UserLevel, error) {
	seed := &entity.UserLevel{UserID: userID, Level: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var level entity.UserLevel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *ledgerRepository) Append(ctx context.Context, event *entity.XpEvent, apply ApplyFunc) (*entity.UserLevel, bool, error) {
	var (
		level     *entity.UserLevel
		duplicate bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		level, err = r.lockLevel(tx, event.UserID)
		if err != nil {
			return err
		}

		if event.SourceID != "" {
			var count int64
			if err := tx.Model(&entity.XpEvent{}).
				Where("user_id = ? AND source_type = ? AND source_id = ?", event.UserID, event.SourceType, event.SourceID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				duplicate = true
				return nil
			}
		}

		if err := tx.Create(event).Error; err != nil {
			return err
		}

		if err := apply(level); err != nil {
			return err
		}

		return tx.Save(level).Error
	})
	if err != nil {
		return nil, false, err
	}

	return level, duplicate, nil
}

func (r *ledgerRepository) Rebuild(ctx context.Context, userID uuid.UUID, apply func(level *entity.UserLevel, ledgerSum int64) error) (*entity.UserLevel, error) {
	var level *entity.UserLevel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		level, err = r.lockLevel(tx, userID)
		if err != nil {
			return err
		}

		var sum int64
		if err := tx.Model(&entity.XpEvent{}).
			Select("COALESCE(SUM(final_xp), 0)").
			Where("user_id = ?", userID).
			Scan(&sum).Error; err != nil {
			return err
		}

		if err := apply(level, sum); err != nil {
			return err
		}

		return tx.Save(level).Error
	})
	if err != nil {
		return nil, err
	}

	return level, nil
}

// FindLevel returns nil without error when the user has never earned XP.
func (r *ledgerRepository) FindLevel(ctx context.Context, userID uuid.UUID) (*entity.UserLevel, error) {
	var level entity.UserLevel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *ledgerRepository) RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]entity.XpEvent, error) {
	var events []entity.XpEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *ledgerRepository) CountUsersAbove(ctx context.Context, totalXP int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.UserLevel{}).Where("total_xp > ?", totalXP).Count(&count).Error
	return count, err
}

func (r *ledgerRepository) SumSince(ctx context.Context, since time.Time) (int64, int64, error) {
	var row struct {
		Awarded     int64
		ActiveUsers int64
	}
	err := r.db.WithContext(ctx).Model(&entity.XpEvent{}).
		Select("COALESCE(SUM(final_xp), 0) AS awarded, COUNT(DISTINCT user_id) AS active_users").
		Where("created_at >= ?", since).
		Scan(&row).Error
	return row.Awarded, row.ActiveUsers, err
}

func (r *ledgerRepository) CountLevelUpsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.UserLevel{}).Where("last_level_up >= ?", since).Count(&count).Error
	return count, err
}
