package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/internal/modules/achievement/dto"
	achievementRepo "anoa.com/gamification/internal/modules/achievement/repository"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"
	notifService "anoa.com/gamification/internal/modules/notification/service"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	commonDto "anoa.com/gamification/pkg/dto"
	"anoa.com/gamification/pkg/database"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/microcosm-cc/bluemonday"
)

const activeDefinitionsKey = "active"

// XPAwarder is the slice of the ledger the tracker needs for completion bonuses.
type XPAwarder interface {
	Award(ctx context.Context, input ledgerDto.AwardInput) (*ledgerDto.AwardResult, error)
}

type TrackerService interface {
	CheckAchievements(ctx context.Context, userID uuid.UUID, eventType string, eventData map[string]any) ([]dto.ProgressResult, error)
	UpdateProgress(ctx context.Context, userID, achievementID uuid.UUID, delta float64, pctx dto.ProgressContext) (*dto.ProgressResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID, query dto.ListAchievementsQuery) (*dto.PaginatedAchievementResponse, error)
	UserProgress(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error)

	CreateAchievement(ctx context.Context, input dto.CreateAchievementInput) (*dto.AchievementResponse, error)
	UpdateAchievement(ctx context.Context, id uuid.UUID, input dto.UpdateAchievementInput) (*dto.AchievementResponse, error)
	ReindexCatalog(ctx context.Context) error
}

type Options struct {
	CacheSize int
	Retry     database.RetryPolicy
	Now       func() time.Time
}

type trackerService struct {
	repo          achievementRepo.AchievementRepository
	userRepo      userRepo.UserRepository
	awarder       XPAwarder
	notifications notifService.NotificationService
	index         CatalogIndex
	cache         *lru.Cache
	sanitizer     *bluemonday.Policy
	opts          Options
}

// NewTrackerService wires the tracker. index may be nil, listing then falls back to SQL search.
func NewTrackerService(
	repo achievementRepo.AchievementRepository,
	userRepo userRepo.UserRepository,
	awarder XPAwarder,
	notifications notifService.NotificationService,
	index CatalogIndex,
	opts Options,
) TrackerService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = database.DefaultRetryPolicy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cache, _ := lru.New(opts.CacheSize)

	return &trackerService{
		repo:          repo,
		userRepo:      userRepo,
		awarder:       awarder,
		notifications: notifications,
		index:         index,
		cache:         cache,
		sanitizer:     bluemonday.StrictPolicy(),
		opts:          opts,
	}
}

func (s *trackerService) activeDefinitions(ctx context.Context) ([]entity.Achievement, error) {
	if cached, ok := s.cache.Get(activeDefinitionsKey); ok {
		return cached.([]entity.Achievement), nil
	}

	defs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Add(activeDefinitionsKey, defs)
	return defs, nil
}

func (s *trackerService) definition(ctx context.Context, id uuid.UUID) (*entity.Achievement, error) {
	if cached, ok := s.cache.Get(id); ok {
		def := cached.(entity.Achievement)
		return &def, nil
	}

	def, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, *def)
	return def, nil
}

func (s *trackerService) invalidate() {
	s.cache.Purge()
}

func isAvailable(def *entity.Achievement, completed map[uuid.UUID]bool, now time.Time) bool {
	if !def.IsActive {
		return false
	}
	if def.ExpiresAt != nil && !now.Before(*def.ExpiresAt) {
		return false
	}
	if def.UnlockCondition != nil && !completed[*def.UnlockCondition] {
		return false
	}
	return true
}

func (s *trackerService) progressIndex(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*entity.UserAchievement, map[uuid.UUID]bool, error) {
	rows, err := s.repo.ListUserProgress(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uuid.UUID]*entity.UserAchievement, len(rows))
	completed := make(map[uuid.UUID]bool, len(rows))
	for i := range rows {
		byID[rows[i].AchievementID] = &rows[i]
		if rows[i].CompletionCount > 0 {
			completed[rows[i].AchievementID] = true
		}
	}
	return byID, completed, nil
}

func (s *trackerService) CheckAchievements(ctx context.Context, userID uuid.UUID, eventType string, eventData map[string]any) ([]dto.ProgressResult, error) {
	defs, err := s.activeDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	progress, completed, err := s.progressIndex(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	results := []dto.ProgressResult{}
	var errs []error

	for i := range defs {
		def := &defs[i]
		if !isAvailable(def, completed, now) {
			continue
		}

		current := 0.0
		if ua, ok := progress[def.ID]; ok {
			if isPermanentlyCompleted(ua, def) {
				continue
			}
			current = ua.Progress
		}

		req := def.Requirements.Data()
		if !IsKnownRule(req.Rule) {
			slog.Warn("Skipping achievement with unknown rule",
				slog.String("slug", def.Slug),
				slog.String("rule", req.Rule))
			continue
		}
		if _, relevant := evaluateRule(req, eventType, eventData, current); !relevant {
			continue
		}

		// reach_value depends on the stored progress, so the delta is recomputed under the row lock
		deltaFn := func(locked float64) float64 {
			delta, _ := evaluateRule(req, eventType, eventData, locked)
			return delta
		}

		result, err := s.updateProgress(ctx, userID, def, deltaFn, dto.ProgressContext{EventType: eventType, Data: eventData})
		if err != nil {
			slog.Error("Failed to update achievement progress",
				slog.String("user_id", userID.String()),
				slog.String("slug", def.Slug),
				slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		results = append(results, *result)
	}

	return results, errors.Join(errs...)
}

func (s *trackerService) UpdateProgress(ctx context.Context, userID, achievementID uuid.UUID, delta float64, pctx dto.ProgressContext) (*dto.ProgressResult, error) {
	if delta < 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, apperror.Validation("delta must be a non-negative number")
	}

	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrUnknownUser
	}

	def, err := s.definition(ctx, achievementID)
	if err != nil {
		return nil, err
	}

	_, completed, err := s.progressIndex(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isAvailable(def, completed, s.opts.Now()) {
		return nil, apperror.Validation("achievement is not available to this user")
	}

	return s.updateProgress(ctx, userID, def, func(float64) float64 { return delta }, pctx)
}

func (s *trackerService) updateProgress(ctx context.Context, userID uuid.UUID, def *entity.Achievement, deltaFn func(current float64) float64, pctx dto.ProgressContext) (*dto.ProgressResult, error) {
	var outcome progressOutcome

	var ua *entity.UserAchievement
	err := database.WithRetry(ctx, s.opts.Retry, func() error {
		now := s.opts.Now()
		var txErr error
		ua, txErr = s.repo.UpdateProgress(ctx, userID, def, func(row *entity.UserAchievement) error {
			entry := entity.ProgressEntry{EventType: pctx.EventType, Context: pctx.Data}
			outcome = applyProgress(row, def, deltaFn(row.Progress), entry, now)
			return nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	result := &dto.ProgressResult{
		AchievementID:   def.ID,
		Slug:            def.Slug,
		Name:            def.Name,
		Progress:        ua.Progress,
		Target:          ua.Target,
		Completed:       ua.Completed,
		CompletionCount: ua.CompletionCount,
		JustCompleted:   len(outcome.Completions) > 0,
		Accepted:        outcome.Accepted,
	}

	// Completion is committed. Bonus crediting below may fail without undoing it.
	for _, count := range outcome.Completions {
		result.BonusXPAwarded += s.onCompleted(ctx, userID, def, count)
	}

	return result, nil
}

func (s *trackerService) onCompleted(ctx context.Context, userID uuid.UUID, def *entity.Achievement, completionCount int) int {
	slog.Info("Achievement completed",
		slog.String("user_id", userID.String()),
		slog.String("slug", def.Slug),
		slog.Int("completion_count", completionCount))

	rewards := def.Rewards.Data()
	if s.notifications != nil {
		s.notifications.Notify(ctx, userID, entity.NotificationAchievementUnlocked,
			fmt.Sprintf("Achievement unlocked: %s", def.Name),
			map[string]any{
				"achievement_id":   def.ID.String(),
				"slug":             def.Slug,
				"completion_count": completionCount,
				"xp":               rewards.XP,
				"badge":            rewards.Badge,
			})
	}

	if rewards.XP <= 0 || s.awarder == nil {
		return 0
	}

	res, err := s.awarder.Award(ctx, ledgerDto.AwardInput{
		UserID:      userID,
		Amount:      rewards.XP,
		EventType:   ledgerService.EventAchievementUnlocked,
		Description: fmt.Sprintf("Achievement unlocked: %s", def.Name),
		SourceType:  ledgerService.SourceAchievement,
		SourceID:    fmt.Sprintf("%s#%d", def.ID, completionCount),
		Metadata: map[string]any{
			"achievement_id":   def.ID.String(),
			"slug":             def.Slug,
			"completion_count": completionCount,
		},
	})
	if err != nil {
		slog.Error("Failed to credit achievement bonus XP",
			slog.String("user_id", userID.String()),
			slog.String("slug", def.Slug),
			slog.Int("completion_count", completionCount),
			slog.Any("error", err))
		return 0
	}
	if res.Duplicate {
		return 0
	}
	return res.FinalXP
}

func (s *trackerService) UserProgress(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error) {
	return s.repo.ListUserProgress(ctx, userID)
}

func (s *trackerService) ListForUser(ctx context.Context, userID uuid.UUID, query dto.ListAchievementsQuery) (*dto.PaginatedAchievementResponse, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}

	filter := achievementRepo.Filter{
		Category:   query.Category,
		Type:       query.Type,
		Difficulty: query.Difficulty,
		Completed:  query.Completed,
		Limit:      query.Limit,
		Offset:     (query.Page - 1) * query.Limit,
	}

	if query.Search != "" {
		if s.index != nil {
			ids, err := s.index.Search(query.Search, 1000)
			if err == nil {
				filter.IDs = ids
			} else {
				slog.Warn("Catalog search failed, using SQL fallback", slog.Any("error", err))
				filter.Search = query.Search
			}
		} else {
			filter.Search = query.Search
		}
	}

	rows, total, err := s.repo.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.AchievementResponse, 0, len(rows))
	for i := range rows {
		resp := toResponse(&rows[i].Achievement)
		if rows[i].Target != nil {
			up := &dto.UserProgress{
				Progress:    deref(rows[i].Progress),
				Target:      *rows[i].Target,
				Completed:   rows[i].Completed != nil && *rows[i].Completed,
				CompletedAt: rows[i].CompletedAt,
			}
			if rows[i].CompletionCount != nil {
				up.CompletionCount = *rows[i].CompletionCount
			}
			up.Percent = percent(up.Progress, up.Target, up.Completed)
			resp.UserProgress = up
		}
		data = append(data, resp)
	}

	return &dto.PaginatedAchievementResponse{
		Data: data,
		Meta: commonDto.NewPageMeta(query.Page, query.Limit, total),
	}, nil
}

func percent(progress, target float64, completed bool) float64 {
	if completed || target <= 0 {
		return 100
	}
	return math.Min(100, math.Round(progress/target*10000)/100)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func toResponse(a *entity.Achievement) dto.AchievementResponse {
	return dto.AchievementResponse{
		ID:              a.ID,
		Slug:            a.Slug,
		Name:            a.Name,
		Description:     a.Description,
		Type:            a.Type,
		Category:        a.Category,
		Difficulty:      a.Difficulty,
		Points:          a.Points,
		Requirements:    a.Requirements.Data(),
		Rewards:         a.Rewards.Data(),
		IsRepeatable:    a.IsRepeatable,
		MaxCompletions:  a.MaxCompletions,
		UnlockCondition: a.UnlockCondition,
		ExpiresAt:       a.ExpiresAt,
	}
}
