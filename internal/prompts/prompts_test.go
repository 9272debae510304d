package prompts

import (
	"strings"
	"testing"
)

func sampleDay() Day {
	return Day{
		Date:          "2025-01-20",
		WorkoutDone:   true,
		WorkoutType:   "upper_body",
		MaxLifts:      map[string]float64{"bench_press": 185, "squat": 225},
		RecentLifts:   map[string]float64{"bench_press": 175},
		ProteinGrams:  140,
		Calories:      2400,
		WaterOz:       70,
		BodyWeight:    175,
		SleepHours:    6.5,
		Soreness:      6,
		Energy:        "moderate",
		RecoveryScore: 68,
	}
}

func TestInsightIncludesDataAndKnowledge(t *testing.T) {
	got, err := Insight(sampleDay())
	if err != nil {
		t.Fatalf("Insight: %v", err)
	}
	for _, want := range []string{
		"EXPERT KNOWLEDGE BASE:",
		"PROGRESSIVE OVERLOAD PRINCIPLES",
		"BENCH PRESS:",
		"SQUAT:",
		"RECOVERY INDICATORS",
		"3-5 brief insights",
		"Workout completed: yes (Upper Body)",
		"  - Bench Press: 185 lbs",
		"Sleep: 6.5 hours, Soreness: 6/10, Energy: moderate",
		"Recovery score: 68%",
		"Use the knowledge above",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("insight prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "DEADLIFT:") {
		t.Fatalf("deadlift knowledge should not be included")
	}
}

func TestInsightIncludesFeedbackHistory(t *testing.T) {
	d := sampleDay()
	d.Feedback = []Feedback{{Iteration: 1, Message: "Too much volume", Sentiment: "negative"}}
	d.Adjustment = "reduce_volume"
	got, err := Insight(d)
	if err != nil {
		t.Fatalf("Insight: %v", err)
	}
	if !strings.Contains(got, "Iteration 1 (negative): Too much volume") || !strings.Contains(got, "Requested adjustment: reduce_volume") {
		t.Fatalf("feedback missing:\n%s", got)
	}
}

func TestPlanSelectsTemplate(t *testing.T) {
	d := sampleDay()
	daily, err := Plan("Sleep was short.", d)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !strings.Contains(daily, "3 specific, realistic, and measurable actions") || !strings.Contains(daily, "Sleep was short.") {
		t.Fatalf("daily plan prompt:\n%s", daily)
	}
	if PlanSystem(d) != PlannerSystem {
		t.Fatalf("expected planner system prompt")
	}

	d.Workout = &Workout{WorkoutType: "upper_body", AvailableMinutes: 45, EnergyLevel: "high", Equipment: []string{"barbell", "dumbbells"}}
	session, err := Plan("Ready to push.", d)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, want := range []string{"today's Upper Body session", "Time available: 45 minutes", "Equipment: barbell, dumbbells"} {
		if !strings.Contains(session, want) {
			t.Fatalf("session prompt missing %q:\n%s", want, session)
		}
	}
	if PlanSystem(d) != WorkoutSystem {
		t.Fatalf("expected workout system prompt")
	}
}

func TestCoachAndPhysique(t *testing.T) {
	coach, err := Coach("insight text", "plan text")
	if err != nil {
		t.Fatalf("Coach: %v", err)
	}
	if !strings.Contains(coach, "One specific action to start TODAY") || !strings.Contains(coach, "plan text") {
		t.Fatalf("coach prompt:\n%s", coach)
	}

	physique, err := Physique("")
	if err != nil {
		t.Fatalf("Physique: %v", err)
	}
	if !strings.Contains(physique, "User's Goal: build muscle") || !strings.Contains(physique, "7. **Priority Areas**") {
		t.Fatalf("physique prompt:\n%s", physique)
	}

	progress, err := Progress(6)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if !strings.Contains(progress, "taken 6 weeks into") || !strings.Contains(progress, "Timeframe: 6 weeks") {
		t.Fatalf("progress prompt:\n%s", progress)
	}

	form, err := Form("back_squat")
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if !strings.Contains(form, "performing a Back Squat.") {
		t.Fatalf("form prompt:\n%s", form)
	}
}

func TestRelevantKnowledgeKeywords(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		day     Day
		want    []string
		notWant []string
	}{
		{"always overload", "hello", Day{}, []string{"PROGRESSIVE OVERLOAD"}, []string{"RECOVERY INDICATORS", "BEGINNER PROGRAMS", "COMMON INJURIES"}},
		{"lift in query", "Tips for overhead press", Day{}, []string{"OVERHEAD PRESS (OHP):"}, []string{"BENCH PRESS:"}},
		{"program words", "build me a routine", Day{}, []string{"BEGINNER PROGRAMS"}, nil},
		{"injury words", "my shoulder hurts", Day{}, []string{"COMMON INJURIES"}, nil},
		{"recovery data", "", Day{SleepHours: 7}, []string{"RECOVERY INDICATORS"}, nil},
		{"lift in data", "", Day{MaxLifts: map[string]float64{"deadlift": 275}}, []string{"DEADLIFT:"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelevantKnowledge(tt.query, tt.day)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Fatalf("unexpected %q", w)
				}
			}
		})
	}
}

func TestLiftName(t *testing.T) {
	if got := LiftName("overhead_press"); got != "Overhead Press" {
		t.Fatalf("LiftName = %q", got)
	}
	if got := LiftName("squat"); got != "Squat" {
		t.Fatalf("LiftName = %q", got)
	}
}

func TestPhysiquePlan(t *testing.T) {
	got, err := PhysiquePlan("  lagging rear delts  ", Profile{DaysPerWeek: 4, BodyWeight: 182.5})
	if err != nil {
		t.Fatalf("PhysiquePlan: %v", err)
	}
	for _, want := range []string{
		"PHYSIQUE ANALYSIS:\nlagging rear delts\n",
		"- Goal: build muscle",
		"- Experience: intermediate",
		"- Available Days: 4 days/week",
		"- Body Weight: 182.5 lbs",
		"4. **WEEK-BY-WEEK PROGRESSION**",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}

	got, err = PhysiquePlan("ok", Profile{Goal: "cut", Experience: "advanced", DaysPerWeek: 5})
	if err != nil {
		t.Fatalf("PhysiquePlan: %v", err)
	}
	if !strings.Contains(got, "- Goal: cut") || !strings.Contains(got, "- Body Weight: unknown lbs") {
		t.Fatalf("profile not applied:\n%s", got)
	}
}
