package recovery

import (
	"fmt"
	"sync/atomic"
)

// Scorer is an immutable, validated scoring configuration. Safe for concurrent use.
type Scorer struct {
	cfg Config
}

// Evaluation bundles the breakdown and the advisories for one input.
type Evaluation struct {
	Input      Input      `json:"input"`
	Breakdown  Breakdown  `json:"breakdown"`
	Advisories []Advisory `json:"advisories"`
}

// NewScorer validates cfg and returns a Scorer using it.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recovery: %w", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// DefaultScorer returns a Scorer over DefaultConfig.
func DefaultScorer() *Scorer {
	return &Scorer{cfg: DefaultConfig()}
}

// Config returns a copy of the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

func (s *Scorer) ComputeScore(in Input) (float64, error) {
	b, err := s.cfg.breakdown(in)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}

func (s *Scorer) Breakdown(in Input) (Breakdown, error) {
	return s.cfg.breakdown(in)
}

func (s *Scorer) EvaluateRules(score float64, in Input, opts Options) []Advisory {
	return s.cfg.evaluate(score, in, opts)
}

// Evaluate scores in and runs the rules against the result.
func (s *Scorer) Evaluate(in Input, opts Options) (Evaluation, error) {
	b, err := s.cfg.breakdown(in)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Input:      in,
		Breakdown:  b,
		Advisories: s.cfg.evaluate(b.Score, in, opts),
	}, nil
}

// Provider hands out the active Scorer and allows it to be replaced on reload.
type Provider struct {
	current atomic.Pointer[Scorer]
}

// NewProvider returns a Provider serving s, or DefaultScorer when s is nil.
func NewProvider(s *Scorer) *Provider {
	if s == nil {
		s = DefaultScorer()
	}
	p := &Provider{}
	p.current.Store(s)
	return p
}

func (p *Provider) Scorer() *Scorer {
	return p.current.Load()
}

// Swap installs s. Nil is ignored.
func (p *Provider) Swap(s *Scorer) {
	if s == nil {
		return
	}
	p.current.Store(s)
}
