package service

import (
	"context"
	"testing"
	"time"

	achievementRepo "anoa.com/gamification/internal/modules/achievement/repository"
	ledgerRepo "anoa.com/gamification/internal/modules/ledger/repository"
	streakRepo "anoa.com/gamification/internal/modules/streak/repository"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsers struct {
	mock.Mock
	userRepo.UserRepository
}

func (m *MockUsers) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedgerRepo struct {
	mock.Mock
	ledgerRepo.LedgerRepository
}

func (m *MockLedgerRepo) SumSince(ctx context.Context, since time.Time) (int64, int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepo) CountLevelUpsSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockAchievementRepo struct {
	mock.Mock
	achievementRepo.AchievementRepository
}

func (m *MockAchievementRepo) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockStreakRepo struct {
	mock.Mock
	streakRepo.StreakRepository
}

func (m *MockStreakRepo) CountActive(ctx context.Context, cutoffs map[string]time.Time) (int64, error) {
	args := m.Called(ctx, cutoffs)
	return args.Get(0).(int64), args.Error(1)
}

func TestGetStatisticsWeekly(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	users, ledger, achievements, streaks := new(MockUsers), new(MockLedgerRepo), new(MockAchievementRepo), new(MockStreakRepo)
	users.On("Count", mock.Anything).Return(int64(40), nil)
	ledger.On("SumSince", mock.Anything, monday).Return(int64(1200), int64(12), nil)
	ledger.On("CountLevelUpsSince", mock.Anything, monday).Return(int64(3), nil)
	achievements.On("CountCompletedSince", mock.Anything, monday).Return(int64(7), nil)
	streaks.On("CountActive", mock.Anything, map[string]time.Time{
		"daily":  time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		"weekly": time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
	}).Return(int64(9), nil)

	svc := NewStatService(users, ledger, achievements, streaks, func() time.Time { return now })
	stats, err := svc.GetStatistics(context.Background(), "weekly")
	require.NoError(t, err)

	assert.Equal(t, "weekly", stats.Period)
	require.NotNil(t, stats.WindowStart)
	assert.Equal(t, monday, *stats.WindowStart)
	assert.Equal(t, int64(40), stats.TotalUsers)
	assert.Equal(t, int64(12), stats.ActiveUsers)
	assert.Equal(t, int64(1200), stats.XPAwarded)
	assert.Equal(t, int64(7), stats.AchievementsCompleted)
	assert.Equal(t, int64(9), stats.ActiveStreaks)
	assert.Equal(t, int64(3), stats.LevelUps)

	ledger.AssertExpectations(t)
	achievements.AssertExpectations(t)
	streaks.AssertExpectations(t)
}

func TestGetStatisticsAllTimeByDefault(t *testing.T) {
	users, ledger, achievements, streaks := new(MockUsers), new(MockLedgerRepo), new(MockAchievementRepo), new(MockStreakRepo)
	users.On("Count", mock.Anything).Return(int64(2), nil)
	ledger.On("SumSince", mock.Anything, time.Time{}).Return(int64(50), int64(2), nil)
	ledger.On("CountLevelUpsSince", mock.Anything, time.Time{}).Return(int64(0), nil)
	achievements.On("CountCompletedSince", mock.Anything, time.Time{}).Return(int64(1), nil)
	streaks.On("CountActive", mock.Anything, mock.Anything).Return(int64(0), nil)

	svc := NewStatService(users, ledger, achievements, streaks, nil)
	stats, err := svc.GetStatistics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "all_time", stats.Period)
	assert.Nil(t, stats.WindowStart)
	assert.Equal(t, int64(50), stats.XPAwarded)
}

func TestGetStatisticsRejectsUnknownPeriod(t *testing.T) {
	svc := NewStatService(new(MockUsers), new(MockLedgerRepo), new(MockAchievementRepo), new(MockStreakRepo), nil)
	_, err := svc.GetStatistics(context.Background(), "fortnightly")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
