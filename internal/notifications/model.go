package notifications

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("notification not found")
	ErrInvalidInput = errors.New("invalid notification request")
)

type Kind string

const (
	KindRestAlert       Kind = "rest_alert"
	KindPRAlert         Kind = "pr_alert"
	KindMaintainVolume  Kind = "maintain_volume"
	KindMilestone       Kind = "milestone"
	KindMotivation      Kind = "motivation"
	KindWorkoutReminder Kind = "workout_reminder"
	KindMealReminder    Kind = "meal_reminder"
	KindCoachingReady   Kind = "coaching_ready"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Actions tell the client what tapping a notification opens.
const (
	ActionNone             = "none"
	ActionOpenWorkoutPlan  = "open_workout_plan"
	ActionViewMealPlan     = "view_meal_plan"
	ActionLogPRAttempt     = "log_pr_attempt"
	ActionViewRecoveryTips = "view_recovery_tips"
	ActionShareAchievement = "share_achievement"
	ActionViewCoachingRun  = "view_coaching_run"
)

// Notification is one entry in a user's append-only notification log.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	Action    string    `json:"action"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListOptions filters a user's notifications.
type ListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}
