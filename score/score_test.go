package score

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingops/profile"
)

func equityProfile() profile.AssetProfile {
	return profile.AssetProfile{
		Asset:          "AAPL",
		Class:          profile.Equity,
		RegimeIndex:    "SPY",
		RegimeDir:      profile.Bull,
		VIXGuard:       true,
		EventGuard:     true,
		VolumeFeatures: true,
		Group:          "technology",
	}
}

func features(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / 10
	}
	return out
}

func fixed(prob float64) Scorer {
	return ScorerFunc(func(context.Context, string, []float64) (float64, error) {
		return prob, nil
	})
}

func TestEvaluateSoftGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prob float64
		pass bool
	}{
		{"strong", 0.82, true},
		{"exact threshold", 0.75, false}, // strictly greater required
		{"weak", 0.60, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewAdapter(fixed(tt.prob))
			res, err := a.Evaluate(context.Background(), equityProfile(), features(14))
			require.NoError(t, err)
			assert.Equal(t, tt.prob, res.Probability)
			assert.Equal(t, tt.pass, res.Pass)
		})
	}
}

func TestEvaluateFailsFastOnVectorSizeMismatch(t *testing.T) {
	t.Parallel()

	called := false
	a := NewAdapter(ScorerFunc(func(context.Context, string, []float64) (float64, error) {
		called = true
		return 0.9, nil
	}))

	_, err := a.Evaluate(context.Background(), equityProfile(), features(12))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12 values, profile expects 14")
	assert.False(t, called, "scorer must not be reached on a shape mismatch")

	forex := profile.AssetProfile{
		Asset: "EURUSD", Class: profile.Forex,
		RegimeDir: profile.Any, Group: "usd-majors",
	}
	_, err = a.Evaluate(context.Background(), forex, features(14))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile expects 12")
}

func TestEvaluateScoringFailureNeverDefaultsToPass(t *testing.T) {
	t.Parallel()

	boom := ScorerFunc(func(context.Context, string, []float64) (float64, error) {
		return 0, errors.New("model offline")
	})
	a := NewAdapter(boom)

	res, err := a.Evaluate(context.Background(), equityProfile(), features(14))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, res.Pass)
}

func TestEvaluateRejectsOutOfRangeProbability(t *testing.T) {
	t.Parallel()

	for _, prob := range []float64{-0.1, 1.1} {
		a := NewAdapter(fixed(prob))
		_, err := a.Evaluate(context.Background(), equityProfile(), features(14))
		assert.ErrorIs(t, err, ErrUnavailable, "prob=%v", prob)
	}
}

func TestEvaluateBoundedByTimeout(t *testing.T) {
	t.Parallel()

	slow := ScorerFunc(func(ctx context.Context, _ string, _ []float64) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 0.9, nil
		}
	})
	a := NewAdapter(slow).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := a.Evaluate(context.Background(), equityProfile(), features(14))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPScorer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"probability":0.81}`))
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, time.Second)
	prob, err := s.Score(context.Background(), "AAPL", features(14))
	require.NoError(t, err)
	assert.InDelta(t, 0.81, prob, 1e-9)
}

func TestHTTPScorerSurfacesServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad shape", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, time.Second)
	_, err := s.Score(context.Background(), "AAPL", features(14))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestHTTPVeto(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"approve":false,"reason":"negative headline"}`))
	}))
	defer srv.Close()

	v := NewHTTPVeto(srv.URL, time.Second)
	ok, err := v.Evaluate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}
