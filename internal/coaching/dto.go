package coaching

import "time"

// RunResponse is the outward-facing representation of a run.
type RunResponse struct {
	RunID        string             `json:"runId"`
	CheckInID    string             `json:"checkinId,omitempty"`
	Status       string             `json:"status"`
	Insight      string             `json:"insight,omitempty"`
	Plan         string             `json:"plan,omitempty"`
	Motivation   string             `json:"motivation,omitempty"`
	StepErrors   map[string]string  `json:"stepErrors,omitempty"`
	Feedback     []FeedbackResponse `json:"feedback"`
	Iteration    int                `json:"iteration"`
	Finalized    bool               `json:"finalized"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

type FeedbackResponse struct {
	Iteration  int    `json:"iteration"`
	Message    string `json:"message"`
	Sentiment  string `json:"sentiment"`
	Adjustment string `json:"adjustment,omitempty"`
}

func toResponse(run Run) RunResponse {
	feedback := make([]FeedbackResponse, 0, len(run.Feedback))
	for _, f := range run.Feedback {
		feedback = append(feedback, FeedbackResponse{
			Iteration:  f.Iteration,
			Message:    f.Message,
			Sentiment:  f.Sentiment,
			Adjustment: f.Adjustment,
		})
	}
	return RunResponse{
		RunID:        run.ID,
		CheckInID:    run.CheckInID,
		Status:       run.Status,
		Insight:      run.Insight,
		Plan:         run.Plan,
		Motivation:   run.Motivation,
		StepErrors:   run.StepErrors,
		Feedback:     feedback,
		Iteration:    run.Iteration,
		Finalized:    run.Finalized(),
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
	}
}
