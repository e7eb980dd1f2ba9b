package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter narrows the catalog listing. Nil pointers mean "any".
type Filter struct {
	Category   string
	Type       string
	Difficulty string
	Completed  *bool
	Search     string      // substring match on name and description
	IDs        []uuid.UUID // restricts to these ids, used by full text search
	Limit      int
	Offset     int
}

// CatalogRow is a definition joined with the caller's progress, if any.
type CatalogRow struct {
	entity.Achievement
	Progress        *float64
	Target          *float64
	Completed       *bool
	CompletionCount *int
	CompletedAt     *time.Time
}

type AchievementRepository interface {
	Create(ctx context.Context, achievement *entity.Achievement) error
	Update(ctx context.Context, achievement *entity.Achievement) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Achievement, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Achievement, error)
	ListActive(ctx context.Context) ([]entity.Achievement, error)
	ListAll(ctx context.Context) ([]entity.Achievement, error)

	// UpdateProgress creates the user's row on first touch and runs apply with it locked.
	UpdateProgress(ctx context.Context, userID uuid.UUID, achievement *entity.Achievement, apply func(ua *entity.UserAchievement) error) (*entity.UserAchievement, error)
	ListUserProgress(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]CatalogRow, int64, error)
	CountCompletedSince(ctx context.Context, since time.Time) (int64, error)
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) Create(ctx context.Context, achievement *entity.Achievement) error {
	return r.db.WithContext(ctx).Create(achievement).Error
}

func (r *achievementRepository) Update(ctx context.Context, achievement *entity.Achievement) error {
	return r.db.WithContext(ctx).Save(achievement).Error
}

func (r *achievementRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Achievement, error) {
	var achievement entity.Achievement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("achievement not found")
		}
		return nil, err
	}
	return &achievement, nil
}

func (r *achievementRepository) FindBySlug(ctx context.Context, slug string) (*entity.Achievement, error) {
	var achievement entity.Achievement
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("achievement not found")
		}
		return nil, err
	}
	return &achievement, nil
}

func (r *achievementRepository) ListActive(ctx context.Context) ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&achievements).Error
	return achievements, err
}

func (r *achievementRepository) ListAll(ctx context.Context) ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := r.db.WithContext(ctx).Order("created_at asc").Find(&achievements).Error
	return achievements, err
}

func (r *achievementRepository) UpdateProgress(ctx context.Context, userID uuid.UUID, achievement *entity.Achievement, apply func(ua *entity.UserAchievement) error) (*entity.UserAchievement, error) {
	var ua entity.UserAchievement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := &entity.UserAchievement{
			UserID:        userID,
			AchievementID: achievement.ID,
			Target:        achievement.Requirements.Data().Target,
			ProgressData:  datatypes.NewJSONType([]entity.ProgressEntry{}),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(seed).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND achievement_id = ?", userID, achievement.ID).
			First(&ua).Error; err != nil {
			return err
		}

		before := ua.CompletionCount
		if err := apply(&ua); err != nil {
			return err
		}

		if err := tx.Save(&ua).Error; err != nil {
			return err
		}
		return recordCompletions(tx, &ua, before)
	})
	if err != nil {
		return nil, err
	}

	return &ua, nil
}

// recordCompletions logs every cycle apply added. Replays of a cycle are ignored.
func recordCompletions(tx *gorm.DB, ua *entity.UserAchievement, before int) error {
	if ua.CompletionCount <= before || ua.CompletedAt == nil {
		return nil
	}
	completions := make([]entity.AchievementCompletion, 0, ua.CompletionCount-before)
	for cycle := before + 1; cycle <= ua.CompletionCount; cycle++ {
		completions = append(completions, entity.AchievementCompletion{
			UserID:        ua.UserID,
			AchievementID: ua.AchievementID,
			Cycle:         cycle,
			CompletedAt:   *ua.CompletedAt,
		})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&completions).Error
}

func (r *achievementRepository) ListUserProgress(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error) {
	var rows []entity.UserAchievement
	err := r.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&rows).Error
	return rows, err
}

func (r *achievementRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]CatalogRow, int64, error) {
	query := r.db.WithContext(ctx).
		Table("achievements AS a").
		Joins("LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?", userID).
		Where("a.is_active = ?", true)

	if filter.Category != "" {
		query = query.Where("a.category = ?", filter.Category)
	}
	if filter.Type != "" {
		query = query.Where("a.type = ?", filter.Type)
	}
	if filter.Difficulty != "" {
		query = query.Where("a.difficulty = ?", filter.Difficulty)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			query = query.Where("ua.completion_count > 0")
		} else {
			query = query.Where("ua.id IS NULL OR ua.completion_count = 0")
		}
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(a.name ILIKE ? OR a.description ILIKE ?)", like, like)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []CatalogRow{}, 0, nil
		}
		query = query.Where("a.id IN ?", filter.IDs)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []CatalogRow
	err := query.
		Select(`a.*, ua.progress AS progress, ua.target AS target, ua.completed AS completed,
			ua.completion_count AS completion_count, ua.completed_at AS completed_at`).
		Order("a.type asc, a.points asc, a.created_at asc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func (r *achievementRepository) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AchievementCompletion{}).
		Where("completed_at >= ?", since).
		Count(&count).Error
	return count, err
}
