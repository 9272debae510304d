package main

// Score a check-in file and optionally run the coaching pipeline against it:
//   go run ./cmd/coach -checkin ./testdata/day.json -coach

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fitflow-backend/internal/bootstrap"
	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/notifications"
	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/telemetry"
)

type report struct {
	CheckIn       checkins.CheckIn             `json:"checkin"`
	Notifications []notifications.Notification `json:"notifications"`
	Coaching      *coaching.Result             `json:"coaching,omitempty"`
}

func main() {
	cfg := config.Load()

	checkinPath := flag.String("checkin", "", "Path to a check-in JSON file ('-' for stdin)")
	rulesPath := flag.String("rules", cfg.RulesFile, "Recovery rules YAML (optional)")
	runCoach := flag.Bool("coach", false, "Run insight, plan and motivation against the model")
	model := flag.String("model", cfg.LLMModel, "Model for the coaching pipeline")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout for the coaching pipeline")
	outPath := flag.String("out", "", "Path to write the JSON report (optional)")
	flag.Parse()

	// stdout carries the report
	telemetry.SetOutput(os.Stderr)

	if strings.TrimSpace(*checkinPath) == "" {
		exitErr("checkin path is required")
	}
	raw, err := readInput(*checkinPath)
	if err != nil {
		exitErr(fmt.Sprintf("read checkin: %v", err))
	}
	var req checkins.RecordRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		exitErr(fmt.Sprintf("invalid checkin json: %v", err))
	}

	scorers, err := bootstrap.BuildScorers(*rulesPath)
	if err != nil {
		exitErr(fmt.Sprintf("load rules: %v", err))
	}
	svc := &checkins.Service{Repo: checkins.NewMemoryRepo(), Scorers: scorers}
	ctx := context.Background()

	checkin, err := svc.Record(ctx, "cli", req)
	if err != nil {
		exitErr(fmt.Sprintf("score checkin: %v", err))
	}

	out := report{
		CheckIn:       checkin,
		Notifications: notifications.Builder{WorkoutHour: cfg.WorkoutHour}.ForCheckIn(checkin),
	}

	if *runCoach {
		pipeline := &coaching.Pipeline{LLM: bootstrap.BuildLLM(cfg, *model)}
		runCtx, cancel := context.WithTimeout(ctx, *timeout)
		res, err := pipeline.Run(runCtx, coaching.DayFromCheckIn(checkin))
		cancel()
		if err != nil {
			exitErr(fmt.Sprintf("coaching pipeline: %v", err))
		}
		out.Coaching = &res
	}

	pretty, err := prettyJSON(out)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func prettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
