package service

import (
	"encoding/json"
	"testing"

	"anoa.com/gamification/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateRule(t *testing.T) {
	countLogins := entity.AchievementRequirements{Rule: entity.RuleCountEvents, EventTypes: []string{"login"}, Target: 7}
	sumRevenue := entity.AchievementRequirements{Rule: entity.RuleSumField, Field: "amount", EventTypes: []string{"revenue_event"}, Target: 1000}
	reachStreak := entity.AchievementRequirements{Rule: entity.RuleReachValue, Field: "current_streak", EventTypes: []string{"streak_updated"}, Target: 30}
	anyEvent := entity.AchievementRequirements{Rule: entity.RuleCountEvents, Target: 100}

	tests := []struct {
		name      string
		req       entity.AchievementRequirements
		eventType string
		data      map[string]any
		current   float64
		wantDelta float64
		wantOK    bool
	}{
		{"count matching event", countLogins, "login", nil, 0, 1, true},
		{"count ignores other events", countLogins, "post_created", nil, 0, 0, false},
		{"count with no event filter", anyEvent, "anything", nil, 0, 1, true},
		{"sum numeric field", sumRevenue, "revenue_event", map[string]any{"amount": 250.5}, 0, 250.5, true},
		{"sum int field", sumRevenue, "revenue_event", map[string]any{"amount": 40}, 0, 40, true},
		{"sum json number", sumRevenue, "revenue_event", map[string]any{"amount": json.Number("12")}, 0, 12, true},
		{"sum string field", sumRevenue, "revenue_event", map[string]any{"amount": "7.5"}, 0, 7.5, true},
		{"sum missing field", sumRevenue, "revenue_event", map[string]any{}, 0, 0, false},
		{"sum negative value", sumRevenue, "revenue_event", map[string]any{"amount": -3}, 0, 0, false},
		{"reach new high", reachStreak, "streak_updated", map[string]any{"current_streak": 12}, 5, 7, true},
		{"reach below high water mark", reachStreak, "streak_updated", map[string]any{"current_streak": 3}, 5, 0, false},
		{"unknown rule", entity.AchievementRequirements{Rule: "vibes"}, "login", nil, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, ok := evaluateRule(tt.req, tt.eventType, tt.data, tt.current)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDelta, delta)
		})
	}
}

func TestIsKnownRule(t *testing.T) {
	assert.True(t, IsKnownRule(entity.RuleSumField))
	assert.False(t, IsKnownRule(""))
}
