// Package score wraps the external probability-scoring capability and
// applies the soft gate. Scoring never overrides a hard guard: it runs only
// for candidates that already cleared every applicable guard.
package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/swingops/profile"
)

// Threshold is the soft gate: a candidate is eligible for arbitration only
// when its calibrated probability is strictly above it.
const Threshold = 0.75

// DefaultTimeout bounds a single scoring call; past it the candidate is
// excluded for the day.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable marks a scoring failure (model down, timeout, malformed
// response). The candidate is excluded with no retry and no fallback pass.
var ErrUnavailable = errors.New("scoring unavailable")

// Scorer is the external scoring capability.
type Scorer interface {
	Score(ctx context.Context, asset string, features []float64) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, asset string, features []float64) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, asset string, features []float64) (float64, error) {
	return f(ctx, asset, features)
}

// Result is one scoring outcome after the soft gate.
type Result struct {
	Probability float64
	Pass        bool
}

// Adapter validates the feature vector against the profile, calls the
// scorer with a bounded context, and applies the soft gate.
type Adapter struct {
	scorer    Scorer
	threshold float64
	timeout   time.Duration
}

// NewAdapter wires a scorer with the standard threshold and timeout.
func NewAdapter(s Scorer) *Adapter {
	return &Adapter{scorer: s, threshold: Threshold, timeout: DefaultTimeout}
}

// WithTimeout overrides the per-call timeout. Zero keeps the default.
func (a *Adapter) WithTimeout(d time.Duration) *Adapter {
	if d > 0 {
		a.timeout = d
	}
	return a
}

// Evaluate scores one candidate. It fails fast on a feature-vector length
// mismatch before any call crosses the service boundary.
func (a *Adapter) Evaluate(ctx context.Context, p profile.AssetProfile, features []float64) (Result, error) {
	if want := p.FeatureSize(); len(features) != want {
		return Result{}, fmt.Errorf("score %s: feature vector has %d values, profile expects %d",
			p.Asset, len(features), want)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prob, err := a.scorer.Score(ctx, p.Asset, features)
	if err != nil {
		return Result{}, fmt.Errorf("score %s: %w: %w", p.Asset, ErrUnavailable, err)
	}
	if prob < 0 || prob > 1 {
		return Result{}, fmt.Errorf("score %s: %w: probability %v outside [0,1]", p.Asset, ErrUnavailable, prob)
	}
	return Result{Probability: prob, Pass: prob > a.threshold}, nil
}
