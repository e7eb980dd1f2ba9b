package service

import (
	"encoding/json"
	"slices"
	"strconv"

	"anoa.com/gamification/internal/entity"
)

// evaluateRule returns how much progress an event is worth for a counting rule.
// current is the progress already recorded, used by reach_value rules.
func evaluateRule(req entity.AchievementRequirements, eventType string, data map[string]any, current float64) (float64, bool) {
	if len(req.EventTypes) > 0 && !slices.Contains(req.EventTypes, eventType) {
		return 0, false
	}

	switch req.Rule {
	case entity.RuleCountEvents:
		return 1, true

	case entity.RuleSumField:
		value, ok := numericField(data, req.Field)
		if !ok || value <= 0 {
			return 0, false
		}
		return value, true

	case entity.RuleReachValue:
		value, ok := numericField(data, req.Field)
		if !ok || value <= current {
			return 0, false
		}
		return value - current, true
	}

	return 0, false
}

// IsKnownRule reports whether rule is one the dispatcher evaluates.
func IsKnownRule(rule string) bool {
	switch rule {
	case entity.RuleCountEvents, entity.RuleSumField, entity.RuleReachValue:
		return true
	}
	return false
}

func numericField(data map[string]any, field string) (float64, bool) {
	if field == "" || data == nil {
		return 0, false
	}

	switch v := data[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
