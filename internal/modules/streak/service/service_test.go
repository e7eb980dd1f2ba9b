package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anoa.com/gamification/internal/entity"
	ledgerDto "anoa.com/gamification/internal/modules/ledger/dto"
	"anoa.com/gamification/internal/modules/streak/dto"
	"anoa.com/gamification/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStreakRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Streak
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{rows: map[string]*entity.Streak{}}
}

func streakKey(userID uuid.UUID, streakType string) string {
	return userID.String() + "/" + streakType
}

func (f *fakeStreakRepo) Update(_ context.Context, userID uuid.UUID, streakType, period string, apply func(*entity.Streak) error) (*entity.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[streakKey(userID, streakType)]
	if !ok {
		row = &entity.Streak{ID: uuid.New(), UserID: userID, StreakType: streakType, Period: period, IsActive: true, StreakMultiplier: 1}
		f.rows[streakKey(userID, streakType)] = row
	}
	working := *row
	if err := apply(&working); err != nil {
		return nil, err
	}
	*row = working
	copied := *row
	return &copied, nil
}

func (f *fakeStreakRepo) Find(_ context.Context, userID uuid.UUID, streakType string) (*entity.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[streakKey(userID, streakType)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeStreakRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Streak
	for _, row := range f.rows {
		if row.UserID == userID && row.LastActivityDate != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeStreakRepo) DeactivateStale(_ context.Context, cutoffs map[string]time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		cutoff, ok := cutoffs[row.Period]
		if !ok || !row.IsActive || row.LastActivityDate == nil || !row.LastActivityDate.Before(cutoff) {
			continue
		}
		row.IsActive = false
		row.CurrentStreak = 0
		row.StreakMultiplier = 1
		n++
	}
	return n, nil
}

func (f *fakeStreakRepo) CountActive(_ context.Context, cutoffs map[string]time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		cutoff, ok := cutoffs[row.Period]
		if !ok || !row.IsActive || row.CurrentStreak == 0 || row.LastActivityDate == nil || row.LastActivityDate.Before(cutoff) {
			continue
		}
		n++
	}
	return n, nil
}

type MockAwarder struct {
	mock.Mock
}

func (m *MockAwarder) Award(ctx context.Context, input ledgerDto.AwardInput) (*ledgerDto.AwardResult, error) {
	args := m.Called(ctx, input)
	if r := args.Get(0); r != nil {
		return r.(*ledgerDto.AwardResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type knownUsers map[uuid.UUID]bool

func (k knownUsers) FindByID(context.Context, string) (*entity.User, error) { return nil, nil }
func (k knownUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) { return k[id], nil }
func (k knownUsers) FindRoleByName(context.Context, string) (*entity.Role, error) { return nil, nil }
func (k knownUsers) Upsert(context.Context, *entity.User) error { return nil }
func (k knownUsers) Count(context.Context) (int64, error) { return int64(len(k)), nil }

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newStreakService(repo *fakeStreakRepo, awarder XPAwarder, userID uuid.UUID, c *clock) StreakService {
	policy := NewPolicy(map[string]string{"workout": entity.PeriodWeekly},
		[]Milestone{{Length: 3, BonusXP: 30}, {Length: 7, BonusXP: 70}},
		DefaultMultipliers())
	return NewStreakService(repo, knownUsers{userID: true}, awarder, nil, policy, Options{Now: c.Now})
}

func TestUpdateStreakValidation(t *testing.T) {
	userID := uuid.New()
	c := &clock{now: day(2026, 3, 10).Add(9 * time.Hour)}
	svc := newStreakService(newFakeStreakRepo(), new(MockAwarder), userID, c)
	ctx := context.Background()

	_, err := svc.UpdateStreak(ctx, userID, "Daily Login!", nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.UpdateStreak(ctx, userID, "", nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	tomorrow := day(2026, 3, 11)
	_, err = svc.UpdateStreak(ctx, userID, "login", &tomorrow)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.UpdateStreak(ctx, uuid.New(), "login", nil)
	assert.ErrorIs(t, err, apperror.ErrUnknownUser)
}

func TestUpdateStreakCreditsMilestoneOnce(t *testing.T) {
	userID := uuid.New()
	c := &clock{}
	awarder := new(MockAwarder)
	awarder.On("Award", mock.Anything, mock.MatchedBy(func(in ledgerDto.AwardInput) bool {
		return in.UserID == userID &&
			in.Amount == 30 &&
			in.EventType == "streak_milestone" &&
			in.SourceType == "streak_milestone" &&
			in.SourceID == "streak:login:3"
	})).Return(&ledgerDto.AwardResult{FinalXP: 30}, nil).Once()

	svc := newStreakService(newFakeStreakRepo(), awarder, userID, c)
	ctx := context.Background()

	var last *dto.StreakResult
	for i := 0; i < 3; i++ {
		c.now = day(2026, 3, 10+i).Add(8 * time.Hour)
		res, err := svc.UpdateStreak(ctx, userID, "login", nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.CurrentStreak)
		last = res
	}
	assert.Equal(t, StatusContinued, last.Status)
	assert.Equal(t, []int{3}, last.MilestonesReached)
	assert.Equal(t, 30, last.BonusXPAwarded)

	// same day again
	res, err := svc.UpdateStreak(ctx, userID, "login", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Empty(t, res.MilestonesReached)
	require.NotNil(t, res.NextMilestone)
	assert.Equal(t, 7, *res.NextMilestone)
	assert.Equal(t, 1.1, res.Multiplier)

	awarder.AssertExpectations(t)
}

func TestUpdateStreakBonusFailureIsNotFatal(t *testing.T) {
	userID := uuid.New()
	c := &clock{}
	awarder := new(MockAwarder)
	awarder.On("Award", mock.Anything, mock.Anything).Return(nil, errors.New("ledger down"))

	svc := newStreakService(newFakeStreakRepo(), awarder, userID, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.now = day(2026, 3, 10+i)
		out, err := svc.UpdateStreak(ctx, userID, "login", nil)
		require.NoError(t, err)
		if i == 2 {
			assert.Equal(t, []int{3}, out.MilestonesReached)
			assert.Zero(t, out.BonusXPAwarded)
		}
	}
}

func TestMultiplierForLapsedStreak(t *testing.T) {
	userID := uuid.New()
	c := &clock{}
	repo := newFakeStreakRepo()
	svc := newStreakService(repo, new(MockAwarder), userID, c)
	ctx := context.Background()

	factor, err := svc.MultiplierFor(ctx, userID, "login")
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)

	for i := 0; i < 3; i++ {
		c.now = day(2026, 4, 1+i)
		_, err := svc.UpdateStreak(ctx, userID, "login", nil)
		require.NoError(t, err)
	}
	factor, err = svc.MultiplierFor(ctx, userID, "login")
	require.NoError(t, err)
	assert.Equal(t, 1.1, factor)

	c.now = day(2026, 4, 6)
	factor, err = svc.MultiplierFor(ctx, userID, "login")
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)

	streaks, err := svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, streaks, 1)
	assert.False(t, streaks[0].IsActive)
	assert.Zero(t, streaks[0].CurrentStreak)
	assert.Equal(t, 3, streaks[0].LongestStreak)
}

func TestSweepInactive(t *testing.T) {
	userID := uuid.New()
	c := &clock{}
	repo := newFakeStreakRepo()
	svc := newStreakService(repo, new(MockAwarder), userID, c)
	ctx := context.Background()

	c.now = day(2026, 3, 2)
	_, err := svc.UpdateStreak(ctx, userID, "login", nil)
	require.NoError(t, err)
	_, err = svc.UpdateStreak(ctx, userID, "workout", nil)
	require.NoError(t, err)

	// daily lapses after a missed day, the weekly streak survives until the week after next
	count, err := svc.SweepInactive(ctx, day(2026, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	active, err := repo.CountActive(ctx, StaleCutoffs(day(2026, 3, 4)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	count, err = svc.SweepInactive(ctx, day(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCountActiveIgnoresLapsedRowsBeforeSweep(t *testing.T) {
	userID := uuid.New()
	c := &clock{}
	repo := newFakeStreakRepo()
	svc := newStreakService(repo, new(MockAwarder), userID, c)
	ctx := context.Background()

	c.now = day(2026, 3, 2)
	_, err := svc.UpdateStreak(ctx, userID, "login", nil)
	require.NoError(t, err)
	_, err = svc.UpdateStreak(ctx, userID, "workout", nil)
	require.NoError(t, err)

	active, err := repo.CountActive(ctx, StaleCutoffs(day(2026, 3, 3)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	// no sweep has run, the daily row is still flagged active but has lapsed
	active, err = repo.CountActive(ctx, StaleCutoffs(day(2026, 3, 4)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	// the per-user view agrees with the count
	c.now = day(2026, 3, 4)
	streaks, err := svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	running := 0
	for _, st := range streaks {
		if st.IsActive {
			running++
		}
	}
	assert.Equal(t, int(active), running)
}
