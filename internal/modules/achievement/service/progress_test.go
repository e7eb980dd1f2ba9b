package service

import (
	"testing"
	"time"

	"anoa.com/gamification/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func TestApplyProgressRepeatableWithCap(t *testing.T) {
	def := &entity.Achievement{IsRepeatable: true, MaxCompletions: intPtr(2)}
	ua := &entity.UserAchievement{Target: 3}

	step := func() progressOutcome {
		return applyProgress(ua, def, 1, entity.ProgressEntry{}, testNow)
	}

	step()
	step()
	assert.Equal(t, 2.0, ua.Progress)
	assert.False(t, ua.Completed)

	out := step()
	assert.Equal(t, []int{1}, out.Completions)
	assert.Equal(t, 1, ua.CompletionCount)
	assert.Equal(t, 0.0, ua.Progress)
	assert.False(t, ua.Completed)

	step()
	step()
	out = step()
	assert.Equal(t, []int{2}, out.Completions)
	assert.Equal(t, 2, ua.CompletionCount)
	assert.True(t, ua.Completed)
	assert.Equal(t, 3.0, ua.Progress)

	out = step()
	assert.False(t, out.Accepted)
	assert.Empty(t, out.Completions)
	assert.Equal(t, 2, ua.CompletionCount)
	assert.Equal(t, 3.0, ua.Progress)
}

func TestApplyProgressNonRepeatableClamps(t *testing.T) {
	def := &entity.Achievement{}
	ua := &entity.UserAchievement{Target: 100}

	out := applyProgress(ua, def, 40, entity.ProgressEntry{}, testNow)
	assert.Empty(t, out.Completions)
	assert.LessOrEqual(t, ua.Progress, ua.Target)

	out = applyProgress(ua, def, 500, entity.ProgressEntry{}, testNow)
	assert.Equal(t, []int{1}, out.Completions)
	assert.True(t, ua.Completed)
	assert.Equal(t, 100.0, ua.Progress)
	require.NotNil(t, ua.CompletedAt)
	assert.Equal(t, testNow, *ua.CompletedAt)

	out = applyProgress(ua, def, 1, entity.ProgressEntry{}, testNow)
	assert.False(t, out.Accepted)
}

func TestApplyProgressUnboundedRepeatableCarriesOverflow(t *testing.T) {
	def := &entity.Achievement{IsRepeatable: true}
	ua := &entity.UserAchievement{Target: 10}

	out := applyProgress(ua, def, 25, entity.ProgressEntry{}, testNow)
	assert.Equal(t, []int{1, 2}, out.Completions)
	assert.Equal(t, 5.0, ua.Progress)
	assert.False(t, ua.Completed)
}

func TestApplyProgressOverflowStopsAtCap(t *testing.T) {
	def := &entity.Achievement{IsRepeatable: true, MaxCompletions: intPtr(2)}
	ua := &entity.UserAchievement{Target: 10}

	out := applyProgress(ua, def, 45, entity.ProgressEntry{}, testNow)
	assert.Equal(t, []int{1, 2}, out.Completions)
	assert.True(t, ua.Completed)
	assert.Equal(t, 10.0, ua.Progress)
}

func TestApplyProgressInvariantHoldsUnderRandomDeltas(t *testing.T) {
	def := &entity.Achievement{IsRepeatable: true, MaxCompletions: intPtr(5)}
	ua := &entity.UserAchievement{Target: 7}

	for i, delta := range []float64{1, 3, 0.5, 9, 2, 11, 4, 0, 6, 13, 1} {
		applyProgress(ua, def, delta, entity.ProgressEntry{}, testNow)
		if !ua.Completed {
			assert.Less(t, ua.Progress, ua.Target, "step %d", i)
		} else {
			assert.GreaterOrEqual(t, ua.Progress, ua.Target, "step %d", i)
		}
	}
	assert.LessOrEqual(t, ua.CompletionCount, 5)
}

func TestApplyProgressKeepsBoundedTrail(t *testing.T) {
	def := &entity.Achievement{IsRepeatable: true}
	ua := &entity.UserAchievement{Target: 1000}

	for i := 0; i < progressTrailSize+5; i++ {
		applyProgress(ua, def, 1, entity.ProgressEntry{EventType: "login"}, testNow)
	}

	trail := ua.ProgressData.Data()
	require.Len(t, trail, progressTrailSize)
	assert.Equal(t, float64(progressTrailSize+5), trail[len(trail)-1].Progress)
	assert.Equal(t, "login", trail[0].EventType)
}

func TestApplyProgressIgnoresNonPositiveDelta(t *testing.T) {
	def := &entity.Achievement{}
	ua := &entity.UserAchievement{Target: 5, Progress: 2}

	out := applyProgress(ua, def, 0, entity.ProgressEntry{}, testNow)
	assert.True(t, out.Accepted)
	assert.Equal(t, 2.0, ua.Progress)
	assert.Empty(t, ua.ProgressData.Data())
}
