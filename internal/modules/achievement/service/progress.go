package service

import (
	"time"

	"anoa.com/gamification/internal/entity"
	"gorm.io/datatypes"
)

// progressTrailSize bounds the audit trail kept in progress_data.
const progressTrailSize = 20

type progressOutcome struct {
	// Completions holds the completion_count value of every cycle closed by this update.
	Completions []int
	// Accepted is false when the row was already permanently completed.
	Accepted bool
}

// isPermanentlyCompleted reports whether ua can never accept progress again.
func isPermanentlyCompleted(ua *entity.UserAchievement, def *entity.Achievement) bool {
	if !ua.Completed {
		return false
	}
	if !def.IsRepeatable {
		return true
	}
	return def.MaxCompletions != nil && ua.CompletionCount >= *def.MaxCompletions
}

// applyProgress adds delta to ua following the completion rules of def.
// Non repeatable rows clamp at target. Repeatable rows carry the overflow into
// the next cycle until max_completions is hit.
func applyProgress(ua *entity.UserAchievement, def *entity.Achievement, delta float64, entry entity.ProgressEntry, now time.Time) progressOutcome {
	if isPermanentlyCompleted(ua, def) {
		return progressOutcome{Accepted: false}
	}
	if delta <= 0 || ua.Target <= 0 {
		return progressOutcome{Accepted: true}
	}

	var outcome progressOutcome
	outcome.Accepted = true

	ua.Progress += delta
	for ua.Progress >= ua.Target {
		ua.CompletionCount++
		completedAt := now
		ua.CompletedAt = &completedAt
		outcome.Completions = append(outcome.Completions, ua.CompletionCount)

		capped := def.MaxCompletions != nil && ua.CompletionCount >= *def.MaxCompletions
		if !def.IsRepeatable || capped {
			ua.Completed = true
			ua.Progress = ua.Target
			break
		}

		ua.Completed = false
		ua.Progress -= ua.Target
	}

	entry.Delta = delta
	entry.Progress = ua.Progress
	entry.At = now
	trail := append(ua.ProgressData.Data(), entry)
	if len(trail) > progressTrailSize {
		trail = trail[len(trail)-progressTrailSize:]
	}
	ua.ProgressData = datatypes.NewJSONType(trail)

	return outcome
}
