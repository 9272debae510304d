package recovery

import "fmt"

// Kind identifies an advisory.
type Kind string

const (
	KindRestRecommended  Kind = "rest_recommended"
	KindProgressionReady Kind = "progression_ready"
	KindMaintainVolume   Kind = "maintain_volume"
)

// Priority orders advisories for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Advisory is the output of one rule firing.
type Advisory struct {
	Kind          Kind     `json:"kind"`
	Priority      Priority `json:"priority"`
	Message       string   `json:"message"`
	SuggestedLoad *float64 `json:"suggestedLoad,omitempty"`
}

// Options carries caller data that some rules read.
type Options struct {
	// CurrentMax is the caller's best load for the lift being progressed, in caller units.
	CurrentMax *float64
}

// Rule is a named predicate over a score producing zero or one advisory.
type Rule struct {
	Name     string
	Evaluate func(score float64, in Input, opts Options) (Advisory, bool)
}

// Rules returns the rule set for c in display order.
func (c Config) Rules() []Rule {
	t := c.Thresholds
	return []Rule{
		{
			Name: string(KindRestRecommended),
			Evaluate: func(score float64, _ Input, _ Options) (Advisory, bool) {
				if score >= t.RestBelow {
					return Advisory{}, false
				}
				return Advisory{
					Kind:     KindRestRecommended,
					Priority: PriorityHigh,
					Message:  fmt.Sprintf("Recovery at %.0f%%. Consider active recovery or complete rest today.", score),
				}, true
			},
		},
		{
			Name: string(KindProgressionReady),
			Evaluate: func(score float64, _ Input, opts Options) (Advisory, bool) {
				if score < t.ProgressionAt {
					return Advisory{}, false
				}
				adv := Advisory{
					Kind:     KindProgressionReady,
					Priority: PriorityHigh,
					Message:  fmt.Sprintf("Recovery at %.0f%%. You're ready to add load today.", score),
				}
				if opts.CurrentMax != nil {
					load := *opts.CurrentMax + c.LoadIncrement
					adv.SuggestedLoad = &load
					adv.Message = fmt.Sprintf("Recovery at %.0f%%. Try %g on your top lift today.", score, load)
				}
				return adv, true
			},
		},
		{
			Name: string(KindMaintainVolume),
			Evaluate: func(score float64, _ Input, _ Options) (Advisory, bool) {
				if score < t.RestBelow || score >= t.ProgressionAt {
					return Advisory{}, false
				}
				return Advisory{
					Kind:     KindMaintainVolume,
					Priority: PriorityMedium,
					Message:  fmt.Sprintf("Recovery at %.0f%%. Keep your working weights and focus on quality reps.", score),
				}, true
			},
		},
	}
}

// evaluate runs every rule; none short-circuit.
func (c Config) evaluate(score float64, in Input, opts Options) []Advisory {
	rules := c.Rules()
	out := make([]Advisory, 0, 1)
	for _, r := range rules {
		if adv, ok := r.Evaluate(score, in, opts); ok {
			out = append(out, adv)
		}
	}
	return out
}

// EvaluateRules evaluates the default rule set.
func EvaluateRules(score float64, in Input, opts Options) []Advisory {
	return DefaultConfig().evaluate(score, in, opts)
}
