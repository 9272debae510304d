// Package mcptools exposes the recovery scorer as MCP tools.
//
// Each tool is a struct holding its dependencies with Definition() returning the
// schema and Handle() serving calls. Input problems are reported as tool errors,
// never as Go errors, so the client can show them to the model.
package mcptools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"fitflow-backend/internal/recovery"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer registers every tool on a new MCP server backed by provider.
func NewServer(provider *recovery.Provider) *server.MCPServer {
	s := server.NewMCPServer(
		"fitflow",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Score a lifter's daily recovery from sleep, soreness and energy, "+
			"and explain the training advisory that follows from the score."),
	)

	scoreTool := NewScoreTool(provider)
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	rulesTool := NewRulesTool(provider)
	s.AddTool(rulesTool.Definition(), rulesTool.Handle)
	return s
}

// ScoreTool handles the recovery_score MCP tool.
type ScoreTool struct {
	provider *recovery.Provider
}

func NewScoreTool(provider *recovery.Provider) *ScoreTool {
	return &ScoreTool{provider: provider}
}

func (t *ScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("recovery_score",
		mcp.WithDescription(
			"Compute a 0-100 recovery score from last night's sleep, muscle soreness and energy, "+
				"with the per-factor breakdown and the resulting training advisory "+
				"(rest, maintain volume, or attempt progression).",
		),
		mcp.WithNumber("sleep_hours",
			mcp.Required(),
			mcp.Description("Hours slept last night (>= 0)"),
		),
		mcp.WithNumber("soreness",
			mcp.Required(),
			mcp.Description("Muscle soreness from 1 (fresh) to 10 (very sore)"),
		),
		mcp.WithString("energy",
			mcp.Required(),
			mcp.Description("Self-reported energy level"),
			mcp.Enum("low", "moderate", "high"),
		),
		mcp.WithNumber("current_max",
			mcp.Description("Current max on the main lift in lbs; enables a suggested attempt when progression is ready"),
		),
	)
}

func (t *ScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sleep, ok := args["sleep_hours"].(float64)
	if !ok {
		return mcp.NewToolResultError("'sleep_hours' is required and must be a number"), nil
	}
	rawSoreness, ok := args["soreness"].(float64)
	if !ok {
		return mcp.NewToolResultError("'soreness' is required and must be a number"), nil
	}
	if rawSoreness != math.Trunc(rawSoreness) {
		return mcp.NewToolResultError("'soreness' must be a whole number from 1 to 10"), nil
	}
	energy, err := recovery.ParseEnergyLevel(req.GetString("energy", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var opts recovery.Options
	if v, ok := args["current_max"].(float64); ok {
		if v <= 0 {
			return mcp.NewToolResultError("'current_max' must be positive"), nil
		}
		opts.CurrentMax = &v
	}

	in := recovery.Input{SleepHours: sleep, Soreness: int(rawSoreness), Energy: energy}
	ev, err := t.provider.Scorer().Evaluate(in, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEvaluation(ev)), nil
}

func formatEvaluation(ev recovery.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recovery score: %s/100\n\n", num(ev.Breakdown.Score))
	b.WriteString("## Breakdown\n")
	fmt.Fprintf(&b, "- Sleep (%s h): %s\n", num(ev.Input.SleepHours), num(ev.Breakdown.Sleep))
	fmt.Fprintf(&b, "- Soreness (%d/10): %s\n", ev.Input.Soreness, num(ev.Breakdown.Soreness))
	fmt.Fprintf(&b, "- Energy (%s): %s\n", ev.Input.Energy, num(ev.Breakdown.Energy))
	b.WriteString("\n## Advisories\n")
	for _, a := range ev.Advisories {
		fmt.Fprintf(&b, "- [%s] %s: %s", strings.ToUpper(string(a.Priority)), a.Kind, a.Message)
		if a.SuggestedLoad != nil {
			fmt.Fprintf(&b, " Suggested attempt: %s lbs.", num(*a.SuggestedLoad))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RulesTool handles the recovery_rules MCP tool.
type RulesTool struct {
	provider *recovery.Provider
}

func NewRulesTool(provider *recovery.Provider) *RulesTool {
	return &RulesTool{provider: provider}
}

func (t *RulesTool) Definition() mcp.Tool {
	return mcp.NewTool("recovery_rules",
		mcp.WithDescription("Describe the active recovery weights, energy points and advisory thresholds."),
	)
}

func (t *RulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := t.provider.Scorer().Config()
	var b strings.Builder
	b.WriteString("# Recovery rules\n\n## Weights\n")
	fmt.Fprintf(&b, "- Sleep: %s (full credit at %s h)\n", num(cfg.Weights.Sleep), num(cfg.SleepTargetHours))
	fmt.Fprintf(&b, "- Soreness: %s\n", num(cfg.Weights.Soreness))
	fmt.Fprintf(&b, "- Energy: %s (low %s, moderate %s, high %s)\n",
		num(cfg.Weights.Energy), num(cfg.EnergyPoints.Low), num(cfg.EnergyPoints.Moderate), num(cfg.EnergyPoints.High))
	b.WriteString("\n## Advisories\n")
	fmt.Fprintf(&b, "- score < %s: %s (high priority)\n", num(cfg.Thresholds.RestBelow), recovery.KindRestRecommended)
	fmt.Fprintf(&b, "- %s <= score < %s: %s (medium priority)\n",
		num(cfg.Thresholds.RestBelow), num(cfg.Thresholds.ProgressionAt), recovery.KindMaintainVolume)
	fmt.Fprintf(&b, "- score >= %s: %s (high priority), suggested attempt = current max + %s lbs\n",
		num(cfg.Thresholds.ProgressionAt), recovery.KindProgressionReady, num(cfg.LoadIncrement))
	return mcp.NewToolResultText(b.String()), nil
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
