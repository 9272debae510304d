package prompts

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"liftName": LiftName,
	"num":      formatNumber,
	"join":     strings.Join,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Params are the generation settings for one agent.
type Params struct {
	Temperature float64
	MaxTokens   int
}

var (
	InsightParams = Params{Temperature: 0.7, MaxTokens: 500}
	PlannerParams = Params{Temperature: 0.6, MaxTokens: 400}
	CoachParams   = Params{Temperature: 0.8, MaxTokens: 400}
	VisionParams  = Params{Temperature: 0.7, MaxTokens: 800}
)

const (
	InsightSystem = `You are a strength training analyst. Analyze lifter data objectively and identify key patterns
in recovery, nutrition and performance.`
	PlannerSystem = `You are a strategic fitness planner who creates realistic, achievable daily plans.
Focus on small, specific actions the lifter can take tomorrow.`
	WorkoutSystem = `You are an expert strength coach who designs safe, time-efficient sessions
around the lifter's recovery and equipment.`
	CoachSystem = `You are an empathetic fitness coach focused on positive reinforcement
and sustainable habit change.`
	VisionSystem = `You are an expert personal trainer and body composition specialist.
Analyze physique photos professionally and provide constructive, actionable feedback.
Focus on muscle development, body composition, posture, and areas for improvement.`
	ProgressSystem = `You are an expert at assessing fitness transformation progress.
Assess progress photos objectively and provide encouraging, specific feedback.`
	FormSystem = `You are a certified strength and conditioning coach specializing in
proper exercise form and injury prevention.`
	PhysiquePlanSystem = `You are an expert strength coach who creates scientifically-backed,
personalized workout programs based on individual physique assessments.`
)

// Feedback is one round of lifter feedback on a generated plan.
type Feedback struct {
	Iteration int    `json:"iteration"`
	Message   string `json:"message"`
	Sentiment string `json:"sentiment"`
	// Adjustment is the change requested by this feedback, empty when it accepts the plan.
	Adjustment string `json:"adjustment,omitempty"`
}

// Workout narrows the planner to a single session.
type Workout struct {
	WorkoutType      string   `json:"workoutType"`
	AvailableMinutes int      `json:"availableMinutes"`
	EnergyLevel      string   `json:"energyLevel,omitempty"`
	Equipment        []string `json:"equipment,omitempty"`
}

// Day is everything the agents know about the lifter's current day.
type Day struct {
	Date          string             `json:"date,omitempty"`
	WorkoutDone   bool               `json:"workoutDone"`
	WorkoutType   string             `json:"workoutType,omitempty"`
	MaxLifts      map[string]float64 `json:"maxLifts,omitempty"`
	RecentLifts   map[string]float64 `json:"recentLifts,omitempty"`
	ProteinGrams  float64            `json:"proteinGrams,omitempty"`
	Calories      float64            `json:"calories,omitempty"`
	WaterOz       float64            `json:"waterOz,omitempty"`
	BodyWeight    float64            `json:"bodyWeight,omitempty"`
	SleepHours    float64            `json:"sleepHours"`
	Soreness      int                `json:"soreness"`
	Energy        string             `json:"energy,omitempty"`
	RecoveryScore float64            `json:"recoveryScore"`
	Advisories    []string           `json:"advisories,omitempty"`
	Feedback      []Feedback         `json:"feedback,omitempty"`
	Adjustment    string             `json:"adjustment,omitempty"`
	Workout       *Workout           `json:"workout,omitempty"`
}

// Insight renders the insight prompt with the relevant knowledge prepended.
func Insight(d Day) (string, error) {
	base, err := render("insight.tmpl", d)
	if err != nil {
		return "", err
	}
	return Enhance(base, d), nil
}

// Plan renders the planner prompt, or the session prompt when d.Workout is set.
func Plan(insight string, d Day) (string, error) {
	name := "planner.tmpl"
	if d.Workout != nil {
		name = "workout_plan.tmpl"
	}
	base, err := render(name, struct {
		Insight string
		Day     Day
	}{insight, d})
	if err != nil {
		return "", err
	}
	return Enhance(base, d), nil
}

func PlanSystem(d Day) string {
	if d.Workout != nil {
		return WorkoutSystem
	}
	return PlannerSystem
}

func Coach(insight, plan string) (string, error) {
	return render("coach.tmpl", struct{ Insight, Plan string }{insight, plan})
}

func Physique(goals string) (string, error) {
	return render("physique.tmpl", struct{ Goals string }{strings.TrimSpace(goals)})
}

// Progress renders the progress-photo prompt for a photo taken weeks into a program.
func Progress(weeks int) (string, error) {
	return render("progress.tmpl", struct{ Weeks int }{weeks})
}

func Form(exercise string) (string, error) {
	return render("form.tmpl", struct{ Exercise string }{strings.TrimSpace(exercise)})
}

// Profile is what the physique planner knows about the lifter beyond the analysis.
type Profile struct {
	Goal        string
	Experience  string
	DaysPerWeek int
	BodyWeight  float64
}

// PhysiquePlan renders a multi-week program prompt from a physique analysis.
func PhysiquePlan(analysis string, p Profile) (string, error) {
	return render("physique_plan.tmpl", struct {
		Profile
		Analysis string
	}{p, strings.TrimSpace(analysis)})
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// LiftName turns "bench_press" into "Bench Press".
func LiftName(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
