package coaching

import (
	"context"
	"errors"
	"fmt"

	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/prompts"
)

const (
	StepInsight = "insight"
	StepPlan    = "plan"
	StepCoach   = "coach"
)

// Result is the output of one insight -> plan -> coach pass.
type Result struct {
	Insight    string            `json:"insight"`
	Plan       string            `json:"plan"`
	Motivation string            `json:"motivation"`
	StepErrors map[string]string `json:"stepErrors,omitempty"`
}

// Failed reports whether every step fell back.
func (r Result) Failed() bool {
	return len(r.StepErrors) == 3
}

// Pipeline runs the three coaching agents in order, each reading the previous output.
type Pipeline struct {
	LLM llm.Client
}

// Insight asks the insight agent to analyze the day.
func (p *Pipeline) Insight(ctx context.Context, d prompts.Day) (string, error) {
	prompt, err := prompts.Insight(d)
	if err != nil {
		return "", err
	}
	return p.complete(ctx, prompts.InsightSystem, prompt, prompts.InsightParams)
}

// Plan turns insights into tomorrow's actions, or a session plan when d.Workout is set.
func (p *Pipeline) Plan(ctx context.Context, insight string, d prompts.Day) (string, error) {
	prompt, err := prompts.Plan(insight, d)
	if err != nil {
		return "", err
	}
	return p.complete(ctx, prompts.PlanSystem(d), prompt, prompts.PlannerParams)
}

func (p *Pipeline) Motivate(ctx context.Context, insight, plan string) (string, error) {
	prompt, err := prompts.Coach(insight, plan)
	if err != nil {
		return "", err
	}
	return p.complete(ctx, prompts.CoachSystem, prompt, prompts.CoachParams)
}

// Run executes insight -> plan -> coach. A failed step is replaced by Fallback and recorded
// in StepErrors so later steps still run. Only context cancellation aborts the chain.
func (p *Pipeline) Run(ctx context.Context, d prompts.Day) (Result, error) {
	res := Result{}
	record := func(step string, err error) string {
		if res.StepErrors == nil {
			res.StepErrors = map[string]string{}
		}
		res.StepErrors[step] = err.Error()
		return Fallback(err)
	}

	insight, err := p.Insight(ctx, d)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		insight = record(StepInsight, err)
	}
	res.Insight = insight

	plan, err := p.Plan(ctx, insight, d)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		plan = record(StepPlan, err)
	}
	res.Plan = plan

	motivation, err := p.Motivate(ctx, insight, plan)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		motivation = record(StepCoach, err)
	}
	res.Motivation = motivation
	return res, nil
}

// WorkoutPlan runs the pipeline focused on a single session.
func (p *Pipeline) WorkoutPlan(ctx context.Context, d prompts.Day, w prompts.Workout) (Result, error) {
	d.Workout = &w
	return p.Run(ctx, d)
}

func (p *Pipeline) complete(ctx context.Context, system, prompt string, params prompts.Params) (string, error) {
	if p.LLM == nil {
		return "", llm.ErrNotConfigured
	}
	resp, err := p.LLM.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Fallback is the text shown in place of a step that could not be generated.
func Fallback(err error) string {
	return "Coaching is temporarily unavailable: " + fallbackReason(err)
}

func fallbackReason(err error) string {
	var httpErr *llm.HTTPError
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return "NIM_API_KEY not found"
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "the coaching model timed out"
	case errors.Is(err, llm.ErrAuth):
		return "the coaching model rejected the API key"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("API Error (status %d)", httpErr.StatusCode)
	case errors.Is(err, llm.ErrEmptyResponse):
		return "the coaching model returned an empty response"
	default:
		return "API Error"
	}
}
