package service

import (
	"sort"
	"time"

	leaderboardRepo "anoa.com/gamification/internal/modules/leaderboard/repository"
)

const (
	BoardXP           = "xp"
	BoardLevel        = "level"
	BoardAchievements = "achievements"
	BoardStreaks      = "streaks"

	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodAllTime = "all_time"
)

// Window XP thresholds for the activity label on bounded boards.
const (
	WindowOnFire   = 500
	WindowTrending = 200
	WindowActive   = 50
)

// WindowStart returns the UTC start of the calendar period containing now.
// all_time has no window.
func WindowStart(period string, now time.Time) (time.Time, bool) {
	now = now.UTC()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodDaily:
		return today, true
	case PeriodWeekly:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -sinceMonday), true
	case PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), true
	case PeriodYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func activityLabel(windowXP int64) string {
	switch {
	case windowXP >= WindowOnFire:
		return "on_fire"
	case windowXP >= WindowTrending:
		return "trending"
	case windowXP >= WindowActive:
		return "active"
	}
	return ""
}

// rankRows orders rows by score, then total XP, then who got there first,
// then user id so equal rows always come back in the same order.
func rankRows(rows []leaderboardRepo.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalXP != b.TotalXP {
			return a.TotalXP > b.TotalXP
		}
		if !a.ReachedAt.Equal(b.ReachedAt) {
			return a.ReachedAt.Before(b.ReachedAt)
		}
		return a.UserID.String() < b.UserID.String()
	})
}
