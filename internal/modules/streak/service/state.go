package service

import (
	"math"
	"slices"
	"time"

	"anoa.com/gamification/internal/entity"
	"gorm.io/datatypes"
)

const (
	StatusStarted   = "started"
	StatusContinued = "continued"
	StatusUnchanged = "unchanged"
	StatusReset     = "reset"
)

type transition struct {
	Status        string
	NewMilestones []int
}

// truncateDay drops the clock part in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// periodIndex numbers calendar periods so consecutive periods differ by one.
// Weekly periods start on Monday.
func periodIndex(date time.Time, period string) int64 {
	days := int64(math.Floor(float64(truncateDay(date).Unix()) / 86400))
	if period == entity.PeriodWeekly {
		// 1970-01-01 was a Thursday, shift so weeks begin on Monday
		return int64(math.Floor(float64(days+3) / 7))
	}
	return days
}

// advance applies one qualifying activity to streak.
func advance(streak *entity.Streak, activity time.Time, policy Policy) transition {
	activity = truncateDay(activity)

	var status string
	switch {
	case streak.LastActivityDate == nil:
		status = StatusStarted
	default:
		gap := periodIndex(activity, streak.Period) - periodIndex(*streak.LastActivityDate, streak.Period)
		switch {
		case gap <= 0:
			// same period, or a late report for an earlier one
			return transition{Status: StatusUnchanged}
		case gap == 1 && streak.IsActive && streak.CurrentStreak > 0:
			status = StatusContinued
		default:
			status = StatusReset
		}
	}

	if status == StatusContinued {
		streak.CurrentStreak++
	} else {
		streak.CurrentStreak = 1
		start := activity
		streak.StreakStartDate = &start
	}

	last := activity
	streak.LastActivityDate = &last
	streak.IsActive = true
	streak.TotalCompletions++
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.StreakMultiplier = policy.MultiplierFor(streak.CurrentStreak)

	reached := streak.Milestones.Data()
	var crossed []int
	for _, m := range policy.milestones {
		if streak.CurrentStreak >= m.Length && !slices.Contains(reached, m.Length) {
			reached = append(reached, m.Length)
			crossed = append(crossed, m.Length)
		}
	}
	if len(crossed) > 0 {
		slices.Sort(reached)
		streak.Milestones = datatypes.NewJSONType(reached)
	}

	return transition{Status: status, NewMilestones: crossed}
}

// isStale reports whether the allowed window since the last activity has elapsed at now.
func isStale(streak *entity.Streak, now time.Time) bool {
	if streak.LastActivityDate == nil {
		return false
	}
	return periodIndex(now, streak.Period)-periodIndex(*streak.LastActivityDate, streak.Period) > 1
}

// StaleCutoffs maps each period to the earliest last_activity_date still within the window at now.
func StaleCutoffs(now time.Time) map[string]time.Time {
	return map[string]time.Time{
		entity.PeriodDaily:  staleCutoff(now, entity.PeriodDaily),
		entity.PeriodWeekly: staleCutoff(now, entity.PeriodWeekly),
	}
}

// staleCutoff is the earliest last_activity_date that is still within the window at now.
func staleCutoff(now time.Time, period string) time.Time {
	today := truncateDay(now)
	if period == entity.PeriodWeekly {
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		return today.AddDate(0, 0, -offset-7)
	}
	return today.AddDate(0, 0, -1)
}
