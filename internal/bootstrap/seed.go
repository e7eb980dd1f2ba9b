package bootstrap

import (
	"log/slog"

	"anoa.com/gamification/internal/entity"
	achievementService "anoa.com/gamification/internal/modules/achievement/service"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.XpEvent{},
		&entity.UserLevel{},
		&entity.Achievement{},
		&entity.UserAchievement{},
		&entity.AchievementCompletion{},
		&entity.Streak{},
		&entity.Notification{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Manages achievements and reconciles ledgers"},
		{Name: entity.RoleService, Description: "Upstream system that reports XP and activity"},
		{Name: entity.RoleMember, Description: "End user"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedAdminUser creates the development admin. Tokens are minted outside the engine,
// so only the id is logged.
func SeedAdminUser(db *gorm.DB) error {
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var existing entity.User
	err := db.Where("username = ?", "admin").Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != uuid.Nil {
		slog.Info("Admin user already exists, skipping seed", slog.String("user_id", existing.ID.String()))
		return nil
	}

	admin := entity.User{
		Username:    "admin",
		DisplayName: "Administrator",
		RoleID:      &adminRole.ID,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	slog.Info("Admin user seeded", slog.String("user_id", admin.ID.String()))
	return nil
}

type seedAchievement struct {
	slug, name, description string
	kind, category          string
	difficulty              string
	req                     entity.AchievementRequirements
	xp                      int
	maxCompletions          *int
}

func intPtr(v int) *int {
	return &v
}

var defaultCatalog = []seedAchievement{
	{
		slug: "first-login", name: "First Steps", description: "Log in for the first time",
		kind: entity.AchievementTypeMilestone, category: "onboarding", difficulty: entity.DifficultyEasy,
		req: entity.AchievementRequirements{Target: 1, Rule: entity.RuleCountEvents, EventTypes: []string{ledgerService.EventLogin}},
		xp:  50,
	},
	{
		slug: "prolific-poster", name: "Prolific Poster", description: "Publish 10 posts",
		kind: entity.AchievementTypeEngagement, category: "content", difficulty: entity.DifficultyMedium,
		req: entity.AchievementRequirements{Target: 10, Rule: entity.RuleCountEvents, EventTypes: []string{ledgerService.EventPostCreated}},
		xp:  150,
	},
	{
		slug: "conversationalist", name: "Conversationalist", description: "Leave 25 comments, up to three times",
		kind: entity.AchievementTypeSocial, category: "social", difficulty: entity.DifficultyMedium,
		req:            entity.AchievementRequirements{Target: 25, Rule: entity.RuleCountEvents, EventTypes: []string{ledgerService.EventCommentCreated}},
		xp:             100,
		maxCompletions: intPtr(3),
	},
	{
		slug: "first-thousand", name: "First Thousand", description: "Generate 1000 in revenue",
		kind: entity.AchievementTypeRevenue, category: "revenue", difficulty: entity.DifficultyHard,
		req: entity.AchievementRequirements{Target: 1000, Rule: entity.RuleSumField, EventTypes: []string{ledgerService.EventRevenue}, Field: "amount"},
		xp:  500,
	},
	{
		slug: "week-warrior", name: "Week Warrior", description: "Keep any streak going for 7 periods",
		kind: entity.AchievementTypeStreak, category: "streak", difficulty: entity.DifficultyMedium,
		req: entity.AchievementRequirements{Target: 7, Rule: entity.RuleReachValue, EventTypes: []string{"streak_updated"}, Field: "current_streak"},
		xp:  200,
	},
	{
		slug: "level-ten", name: "Double Digits", description: "Reach level 10",
		kind: entity.AchievementTypeProgression, category: "progression", difficulty: entity.DifficultyLegendary,
		req: entity.AchievementRequirements{Target: 10, Rule: entity.RuleReachValue, Field: "level"},
		xp:  1000,
	},
}

// SeedAchievements inserts the default catalog. Existing slugs are left alone.
func SeedAchievements(db *gorm.DB) error {
	for _, seed := range defaultCatalog {
		achievement := entity.Achievement{
			Slug:           seed.slug,
			Name:           seed.name,
			Description:    seed.description,
			Type:           seed.kind,
			Category:       seed.category,
			Difficulty:     seed.difficulty,
			Points:         achievementService.DifficultyPoints(seed.difficulty),
			Requirements:   datatypes.NewJSONType(seed.req),
			Rewards:        datatypes.NewJSONType(entity.AchievementRewards{XP: seed.xp}),
			IsRepeatable:   seed.maxCompletions != nil,
			MaxCompletions: seed.maxCompletions,
			IsActive:       true,
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&achievement).Error; err != nil {
			return err
		}
	}

	return nil
}
