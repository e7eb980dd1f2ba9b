package service

import (
	"testing"
	"time"

	"anoa.com/gamification/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func activeStreak(period string, current int, last time.Time) *entity.Streak {
	start := last.AddDate(0, 0, -(current - 1))
	return &entity.Streak{
		StreakType:       "login",
		Period:           period,
		CurrentStreak:    current,
		LongestStreak:    current,
		TotalCompletions: current,
		LastActivityDate: &last,
		StreakStartDate:  &start,
		IsActive:         true,
		StreakMultiplier: 1,
	}
}

func TestAdvanceFirstActivityStarts(t *testing.T) {
	streak := &entity.Streak{StreakType: "login", Period: entity.PeriodDaily}
	step := advance(streak, day(2026, 3, 10).Add(15*time.Hour), NewPolicy(nil, nil, nil))

	assert.Equal(t, StatusStarted, step.Status)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Equal(t, 1, streak.LongestStreak)
	assert.Equal(t, 1, streak.TotalCompletions)
	assert.True(t, streak.IsActive)
	require.NotNil(t, streak.LastActivityDate)
	assert.Equal(t, day(2026, 3, 10), *streak.LastActivityDate)
	assert.Equal(t, day(2026, 3, 10), *streak.StreakStartDate)
}

func TestAdvanceDaily(t *testing.T) {
	policy := NewPolicy(nil, nil, nil)

	t.Run("next day continues", func(t *testing.T) {
		streak := activeStreak(entity.PeriodDaily, 5, day(2026, 3, 10))
		step := advance(streak, day(2026, 3, 11), policy)

		assert.Equal(t, StatusContinued, step.Status)
		assert.Equal(t, 6, streak.CurrentStreak)
		assert.Equal(t, 6, streak.LongestStreak)
		assert.Equal(t, day(2026, 3, 6), *streak.StreakStartDate)
	})

	t.Run("gap of two days resets", func(t *testing.T) {
		streak := activeStreak(entity.PeriodDaily, 5, day(2026, 3, 10))
		step := advance(streak, day(2026, 3, 12), policy)

		assert.Equal(t, StatusReset, step.Status)
		assert.Equal(t, 1, streak.CurrentStreak)
		assert.Equal(t, 5, streak.LongestStreak)
		assert.Equal(t, 6, streak.TotalCompletions)
		assert.Equal(t, day(2026, 3, 12), *streak.StreakStartDate)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		streak := activeStreak(entity.PeriodDaily, 5, day(2026, 3, 10))
		before := *streak
		step := advance(streak, day(2026, 3, 10).Add(23*time.Hour), policy)

		assert.Equal(t, StatusUnchanged, step.Status)
		assert.Equal(t, before, *streak)
	})

	t.Run("earlier day is a no-op", func(t *testing.T) {
		streak := activeStreak(entity.PeriodDaily, 5, day(2026, 3, 10))
		step := advance(streak, day(2026, 3, 8), policy)

		assert.Equal(t, StatusUnchanged, step.Status)
		assert.Equal(t, 5, streak.CurrentStreak)
	})

	t.Run("inactive streak restarts at one", func(t *testing.T) {
		streak := activeStreak(entity.PeriodDaily, 5, day(2026, 3, 10))
		streak.IsActive = false
		streak.CurrentStreak = 0
		step := advance(streak, day(2026, 3, 11), policy)

		assert.Equal(t, StatusReset, step.Status)
		assert.Equal(t, 1, streak.CurrentStreak)
		assert.True(t, streak.IsActive)
	})
}

func TestAdvanceWeekly(t *testing.T) {
	policy := NewPolicy(nil, nil, nil)
	// 2026-03-02 is a Monday
	monday := day(2026, 3, 2)

	streak := activeStreak(entity.PeriodWeekly, 1, monday)
	step := advance(streak, day(2026, 3, 8), policy)
	assert.Equal(t, StatusUnchanged, step.Status, "sunday is still the same week")

	step = advance(streak, day(2026, 3, 11), policy)
	assert.Equal(t, StatusContinued, step.Status)
	assert.Equal(t, 2, streak.CurrentStreak)

	step = advance(streak, day(2026, 3, 25), policy)
	assert.Equal(t, StatusReset, step.Status)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Equal(t, 2, streak.LongestStreak)
}

func TestAdvanceMilestonesPayOnce(t *testing.T) {
	policy := NewPolicy(nil, []Milestone{{Length: 3, BonusXP: 30}, {Length: 7, BonusXP: 70}}, DefaultMultipliers())
	streak := &entity.Streak{StreakType: "login", Period: entity.PeriodDaily}

	var crossed []int
	for i := 0; i < 7; i++ {
		step := advance(streak, day(2026, 3, 1+i), policy)
		crossed = append(crossed, step.NewMilestones...)
	}
	assert.Equal(t, []int{3, 7}, crossed)
	assert.Equal(t, []int{3, 7}, streak.Milestones.Data())
	assert.Equal(t, 1.25, streak.StreakMultiplier)

	// break and rebuild past the same lengths
	crossed = nil
	for i := 0; i < 7; i++ {
		step := advance(streak, day(2026, 3, 20+i), policy)
		crossed = append(crossed, step.NewMilestones...)
	}
	assert.Empty(t, crossed)
	assert.Equal(t, 7, streak.CurrentStreak)
}

func TestPeriodIndexWeeksStartMonday(t *testing.T) {
	sunday := day(2026, 3, 1)
	monday := day(2026, 3, 2)
	nextSunday := day(2026, 3, 8)

	assert.Equal(t, periodIndex(sunday, entity.PeriodWeekly)+1, periodIndex(monday, entity.PeriodWeekly))
	assert.Equal(t, periodIndex(monday, entity.PeriodWeekly), periodIndex(nextSunday, entity.PeriodWeekly))
	assert.Equal(t, periodIndex(sunday, entity.PeriodDaily)+1, periodIndex(monday, entity.PeriodDaily))
}

func TestStaleness(t *testing.T) {
	last := day(2026, 3, 1)
	streak := activeStreak(entity.PeriodDaily, 3, last)

	assert.False(t, isStale(streak, day(2026, 3, 2).Add(20*time.Hour)))
	assert.True(t, isStale(streak, day(2026, 3, 3)))

	// Wednesday 2026-03-04: this week's Monday is 03-02, so last week's is 02-23
	assert.Equal(t, day(2026, 2, 23), staleCutoff(day(2026, 3, 4).Add(5*time.Hour), entity.PeriodWeekly))
	assert.Equal(t, day(2026, 3, 3), staleCutoff(day(2026, 3, 4), entity.PeriodDaily))
}

func TestPolicyTables(t *testing.T) {
	policy := NewPolicy(map[string]string{"workout": entity.PeriodWeekly}, DefaultMilestones(), DefaultMultipliers())

	assert.Equal(t, entity.PeriodWeekly, policy.PeriodFor("workout"))
	assert.Equal(t, entity.PeriodDaily, policy.PeriodFor("login"))

	assert.Equal(t, 1.0, policy.MultiplierFor(2))
	assert.Equal(t, 1.1, policy.MultiplierFor(3))
	assert.Equal(t, 2.0, policy.MultiplierFor(400))

	require.NotNil(t, policy.NextMilestone(7))
	assert.Equal(t, 14, *policy.NextMilestone(7))
	assert.Nil(t, policy.NextMilestone(365))
	assert.Equal(t, 250, policy.BonusFor(30))
	assert.Zero(t, policy.BonusFor(31))
}
