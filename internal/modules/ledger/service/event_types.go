package service

// Known event types and the category each falls into when the caller gives none.
const (
	EventLogin               = "login"
	EventPostCreated         = "post_created"
	EventCommentCreated      = "comment_created"
	EventRevenue             = "revenue_event"
	EventProfileCompleted    = "profile_completed"
	EventReferral            = "referral"
	EventTaskCompleted       = "task_completed"
	EventAchievementUnlocked = "achievement_unlocked"
	EventStreakMilestone     = "streak_milestone"
	EventManualAdjustment    = "manual_adjustment"
)

// Source types the engine itself writes.
const (
	SourceAchievement     = "achievement"
	SourceStreakMilestone = "streak_milestone"
)

// IsEngineSource reports whether sourceType is one the engine writes for its own bonuses.
func IsEngineSource(sourceType string) bool {
	return sourceType == SourceAchievement || sourceType == SourceStreakMilestone
}

var eventCategories = map[string]string{
	EventLogin:               "engagement",
	EventPostCreated:         "content",
	EventCommentCreated:      "social",
	EventRevenue:             "revenue",
	EventProfileCompleted:    "onboarding",
	EventReferral:            "social",
	EventTaskCompleted:       "productivity",
	EventAchievementUnlocked: "achievement",
	EventStreakMilestone:     "streak",
	EventManualAdjustment:    "admin",
}

// IsKnownEventType reports whether t is part of the event enumeration.
func IsKnownEventType(t string) bool {
	_, ok := eventCategories[t]
	return ok
}

func defaultCategory(t string) string {
	return eventCategories[t]
}
