package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/internal/modules/achievement/dto"
	"anoa.com/gamification/pkg/apperror"
	"anoa.com/gamification/pkg/database"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var difficultyPoints = map[string]int{
	entity.DifficultyEasy:      10,
	entity.DifficultyMedium:    25,
	entity.DifficultyHard:      50,
	entity.DifficultyLegendary: 100,
}

// DifficultyPoints returns the fixed point value of a difficulty, 0 if unknown.
func DifficultyPoints(difficulty string) int {
	return difficultyPoints[difficulty]
}

func validateRequirements(req dto.RequirementsInput) error {
	if req.Target <= 0 {
		return apperror.Validation("requirements.target must be greater than 0")
	}
	if !IsKnownRule(req.Rule) {
		return apperror.Validation("requirements.rule is not a known counting rule")
	}
	if (req.Rule == entity.RuleSumField || req.Rule == entity.RuleReachValue) && req.Field == "" {
		return apperror.Validation("requirements.field is required for " + req.Rule)
	}
	return nil
}

func toRequirements(req dto.RequirementsInput) entity.AchievementRequirements {
	return entity.AchievementRequirements{
		Target:     req.Target,
		Rule:       req.Rule,
		EventTypes: req.EventTypes,
		Field:      req.Field,
	}
}

func (s *trackerService) checkPrerequisite(ctx context.Context, self uuid.UUID, prereq *uuid.UUID) error {
	if prereq == nil {
		return nil
	}
	if *prereq == self {
		return apperror.Validation("an achievement cannot unlock itself")
	}
	if _, err := s.repo.FindByID(ctx, *prereq); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Validation("unlock_condition refers to an unknown achievement")
		}
		return err
	}
	return nil
}

func (s *trackerService) CreateAchievement(ctx context.Context, input dto.CreateAchievementInput) (*dto.AchievementResponse, error) {
	if err := validateRequirements(input.Requirements); err != nil {
		return nil, err
	}
	if input.MaxCompletions != nil && !input.IsRepeatable {
		return nil, apperror.Validation("max_completions only applies to repeatable achievements")
	}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if _, err := s.repo.FindBySlug(ctx, slug); err == nil {
		return nil, apperror.Validation("slug already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	achievement := &entity.Achievement{
		ID:              uuid.New(),
		Slug:            slug,
		Name:            s.sanitizer.Sanitize(input.Name),
		Description:     s.sanitizer.Sanitize(input.Description),
		Type:            input.Type,
		Category:        s.sanitizer.Sanitize(input.Category),
		Difficulty:      input.Difficulty,
		Points:          DifficultyPoints(input.Difficulty),
		Requirements:    datatypes.NewJSONType(toRequirements(input.Requirements)),
		Rewards:         datatypes.NewJSONType(entity.AchievementRewards{XP: input.Rewards.XP, Badge: input.Rewards.Badge}),
		IsRepeatable:    input.IsRepeatable,
		MaxCompletions:  input.MaxCompletions,
		UnlockCondition: input.UnlockCondition,
		IsActive:        input.IsActive == nil || *input.IsActive,
		ExpiresAt:       input.ExpiresAt,
	}

	if err := s.checkPrerequisite(ctx, achievement.ID, achievement.UnlockCondition); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, achievement); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Validation("slug already exists")
		}
		return nil, err
	}
	s.invalidate()
	s.indexAsync(achievement)

	slog.Info("Achievement created", slog.String("slug", achievement.Slug))

	resp := toResponse(achievement)
	return &resp, nil
}

func (s *trackerService) UpdateAchievement(ctx context.Context, id uuid.UUID, input dto.UpdateAchievementInput) (*dto.AchievementResponse, error) {
	achievement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		achievement.Name = s.sanitizer.Sanitize(*input.Name)
	}
	if input.Description != nil {
		achievement.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Category != nil {
		achievement.Category = s.sanitizer.Sanitize(*input.Category)
	}
	if input.Difficulty != nil {
		achievement.Difficulty = *input.Difficulty
		achievement.Points = DifficultyPoints(*input.Difficulty)
	}
	if input.Requirements != nil {
		if err := validateRequirements(*input.Requirements); err != nil {
			return nil, err
		}
		// existing user rows keep the target copied when they were created
		achievement.Requirements = datatypes.NewJSONType(toRequirements(*input.Requirements))
	}
	if input.Rewards != nil {
		achievement.Rewards = datatypes.NewJSONType(entity.AchievementRewards{XP: input.Rewards.XP, Badge: input.Rewards.Badge})
	}
	if input.IsRepeatable != nil {
		achievement.IsRepeatable = *input.IsRepeatable
	}
	if input.MaxCompletions != nil {
		achievement.MaxCompletions = input.MaxCompletions
	}
	if achievement.MaxCompletions != nil && !achievement.IsRepeatable {
		return nil, apperror.Validation("max_completions only applies to repeatable achievements")
	}
	if input.UnlockCondition != nil {
		if err := s.checkPrerequisite(ctx, achievement.ID, input.UnlockCondition); err != nil {
			return nil, err
		}
		achievement.UnlockCondition = input.UnlockCondition
	}
	if input.IsActive != nil {
		achievement.IsActive = *input.IsActive
	}
	if input.ExpiresAt != nil {
		achievement.ExpiresAt = input.ExpiresAt
	}

	if err := s.repo.Update(ctx, achievement); err != nil {
		return nil, err
	}
	s.invalidate()
	s.indexAsync(achievement)

	resp := toResponse(achievement)
	return &resp, nil
}

// ReindexCatalog pushes every definition to the search index.
func (s *trackerService) ReindexCatalog(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for i := range all {
		if err := s.index.IndexAchievement(&all[i]); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Info("Achievement catalog reindexed", slog.Int("count", len(all)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (s *trackerService) indexAsync(achievement *entity.Achievement) {
	if s.index == nil {
		return
	}

	snapshot := *achievement
	go func() {
		if err := s.index.IndexAchievement(&snapshot); err != nil {
			slog.Warn("Failed to index achievement",
				slog.String("slug", snapshot.Slug),
				slog.Any("error", err))
		}
	}()
}
