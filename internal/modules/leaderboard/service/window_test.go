package service

import (
	"testing"
	"time"

	leaderboardRepo "anoa.com/gamification/internal/modules/leaderboard/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWindowStart(t *testing.T) {
	// Thursday afternoon in UTC+7 is still Thursday morning in UTC
	now := time.Date(2026, 5, 14, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	tests := []struct {
		period  string
		want    time.Time
		bounded bool
	}{
		{PeriodDaily, time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC), true},
		{PeriodWeekly, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), true},
		{PeriodMonthly, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{PeriodYearly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{PeriodAllTime, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, bounded := WindowStart(tt.period, now)
			assert.Equal(t, tt.bounded, bounded)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestWindowStartWeekOnSunday(t *testing.T) {
	sunday := time.Date(2026, 5, 17, 23, 59, 0, 0, time.UTC)
	got, _ := WindowStart(PeriodWeekly, sunday)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), got)

	monday := time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC)
	got, _ = WindowStart(PeriodWeekly, monday)
	assert.Equal(t, monday, got)
}

func TestRankRowsTieBreaks(t *testing.T) {
	early := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	rows := []leaderboardRepo.Row{
		{UserID: high, Username: "same-everything-high-id", Score: 10, TotalXP: 100, ReachedAt: early},
		{UserID: uuid.New(), Username: "late", Score: 10, TotalXP: 100, ReachedAt: late},
		{UserID: uuid.New(), Username: "richer", Score: 10, TotalXP: 500, ReachedAt: late},
		{UserID: low, Username: "same-everything-low-id", Score: 10, TotalXP: 100, ReachedAt: early},
		{UserID: uuid.New(), Username: "top", Score: 20, TotalXP: 1, ReachedAt: late},
	}
	rankRows(rows)

	var order []string
	for _, r := range rows {
		order = append(order, r.Username)
	}
	assert.Equal(t, []string{"top", "richer", "same-everything-low-id", "same-everything-high-id", "late"}, order)
}

func TestActivityLabel(t *testing.T) {
	assert.Equal(t, "on_fire", activityLabel(500))
	assert.Equal(t, "trending", activityLabel(499))
	assert.Equal(t, "active", activityLabel(50))
	assert.Equal(t, "", activityLabel(49))
}
