package notifications

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/prompts"
	"fitflow-backend/internal/recovery"
)

const (
	DefaultWorkoutHour = 18
	DefaultBodyWeight  = 180.0

	workoutWindow = 60 * time.Minute
	mealWindow    = 30 * time.Minute
	// milestoneBench is two plates a side.
	milestoneBench = 225.0
)

type mealTime struct {
	name         string
	hour, minute int
}

var mealTimes = []mealTime{
	{"Breakfast", 8, 0},
	{"Pre-Workout Snack", 17, 0},
	{"Post-Workout Meal", 19, 30},
	{"Dinner", 20, 0},
}

var quotes = []string{
	"The only bad workout is the one that didn't happen. Get after it!",
	"Progressive overload = progressive results. Add that extra 2.5lbs!",
	"Your future self is counting on the work you do today.",
	"Strength isn't given. It's earned, rep by rep.",
	"The pain you feel today will be the strength you feel tomorrow.",
}

// Builder turns check-ins and the time of day into notifications.
// Now and Pick are injectable so reminders and quotes are deterministic in tests.
type Builder struct {
	WorkoutHour int
	Now         func() time.Time
	Pick        func(n int) int
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Builder) workoutHour() int {
	if b.WorkoutHour < 0 || b.WorkoutHour > 23 {
		return DefaultWorkoutHour
	}
	return b.WorkoutHour
}

// ForCheckIn builds one notification per advisory plus any milestones.
func (b Builder) ForCheckIn(c checkins.CheckIn) []Notification {
	out := make([]Notification, 0, len(c.Advisories)+1)
	for _, adv := range c.Advisories {
		out = append(out, fromAdvisory(c, adv))
	}
	out = append(out, Milestones(c)...)
	return out
}

func fromAdvisory(c checkins.CheckIn, adv recovery.Advisory) Notification {
	n := Notification{UserID: c.UserID, Priority: string(adv.Priority)}
	score := formatNumber(c.Score)
	switch adv.Kind {
	case recovery.KindRestRecommended:
		n.Kind = KindRestAlert
		n.Title = "Recovery Alert: Rest Recommended"
		n.Message = fmt.Sprintf("Recovery at %s%%. Consider active recovery or complete rest today.", score)
		n.Action = ActionViewRecoveryTips
	case recovery.KindProgressionReady:
		n.Kind = KindPRAlert
		n.Title = "PR ALERT: You're Ready!"
		n.Action = ActionLogPRAttempt
		name, _, ok := checkins.HeaviestLift(c.MaxLifts)
		if ok && adv.SuggestedLoad != nil {
			n.Message = fmt.Sprintf("Recovery at %s%%! Try %s lbs on %s today!",
				score, formatNumber(*adv.SuggestedLoad), prompts.LiftName(name))
		} else {
			n.Message = fmt.Sprintf("Recovery at %s%%! %s", score, adv.Message)
		}
	default:
		n.Kind = KindMaintainVolume
		n.Title = "Steady Day: Maintain Volume"
		n.Message = fmt.Sprintf("Recovery at %s%%. %s", score, adv.Message)
		n.Action = ActionOpenWorkoutPlan
	}
	return n
}

// Milestones celebrates strength thresholds reached in c.
func Milestones(c checkins.CheckIn) []Notification {
	if c.MaxLifts["bench_press"] < milestoneBench {
		return nil
	}
	return []Notification{{
		UserID:   c.UserID,
		Kind:     KindMilestone,
		Title:    "MILESTONE UNLOCKED: 225lb Bench!",
		Message:  "You hit two plates! That's elite level strength. Keep pushing!",
		Priority: PriorityHigh,
		Action:   ActionShareAchievement,
	}}
}

// Motivation picks one of the daily quotes.
func (b Builder) Motivation(userID string) Notification {
	pick := b.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return Notification{
		UserID:   userID,
		Kind:     KindMotivation,
		Title:    "Daily Motivation",
		Message:  quotes[pick(len(quotes))],
		Priority: PriorityLow,
		Action:   ActionNone,
	}
}

// Reminders returns the workout and meal reminders due at the builder's current time.
// bodyWeight <= 0 falls back to DefaultBodyWeight for the protein target.
func (b Builder) Reminders(userID string, bodyWeight float64) []Notification {
	now := b.now()
	var out []Notification

	if mins, ok := minutesUntil(now, b.workoutHour(), 0, workoutWindow); ok {
		out = append(out, Notification{
			UserID:   userID,
			Kind:     KindWorkoutReminder,
			Title:    "Workout Time Approaching!",
			Message:  fmt.Sprintf("Your workout starts in %d minutes. Get ready to crush it!", mins),
			Priority: PriorityHigh,
			Action:   ActionOpenWorkoutPlan,
		})
	}

	if bodyWeight <= 0 {
		bodyWeight = DefaultBodyWeight
	}
	perMeal := bodyWeight * 0.8 / 4
	for _, meal := range mealTimes {
		if _, ok := minutesUntil(now, meal.hour, meal.minute, mealWindow); !ok {
			continue
		}
		out = append(out, Notification{
			UserID:   userID,
			Kind:     KindMealReminder,
			Title:    meal.name + " Time",
			Message:  fmt.Sprintf("Time for nutrition! Aim for %.0fg protein this meal.", perMeal),
			Priority: PriorityMedium,
			Action:   ActionViewMealPlan,
		})
	}
	return out
}

// minutesUntil reports whole minutes until the next hh:mm and whether that falls in (0, window].
func minutesUntil(now time.Time, hour, minute int, window time.Duration) (int, bool) {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	mins := int(target.Sub(now) / time.Minute)
	return mins, mins > 0 && time.Duration(mins)*time.Minute <= window
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
