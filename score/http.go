package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPScorer calls a model-serving endpoint. Calls go through a client-side
// rate limiter and a circuit breaker so a sick model service degrades into
// fast ErrUnavailable failures instead of hung evaluation cycles.
type HTTPScorer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewHTTPScorer builds a scorer for the given endpoint. The breaker opens
// after 5 consecutive failures and probes again after 30s.
func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPScorer{
		url:    url,
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "scorer",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}
}

type scoreRequest struct {
	AssetID  string    `json:"asset_id"`
	Features []float64 `json:"features"`
}

type scoreResponse struct {
	Probability float64 `json:"probability"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, asset string, features []float64) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	out, err := s.breaker.Execute(func() (any, error) {
		var resp scoreResponse
		if err := postJSON(ctx, s.client, s.url, scoreRequest{AssetID: asset, Features: features}, &resp); err != nil {
			return nil, err
		}
		return resp.Probability, nil
	})
	if err != nil {
		return 0, err
	}
	return out.(float64), nil
}

// HTTPVeto calls the news/sentiment veto service. It satisfies the arbiter's
// Veto interface; a transport error counts as a rejection upstream.
type HTTPVeto struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPVeto builds a veto client for the given endpoint.
func NewHTTPVeto(url string, timeout time.Duration) *HTTPVeto {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPVeto{
		url:    url,
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "veto",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
	}
}

type vetoRequest struct {
	AssetID string `json:"asset_id"`
}

type vetoResponse struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// Evaluate returns whether the candidate may proceed to order placement.
func (v *HTTPVeto) Evaluate(ctx context.Context, asset string) (bool, error) {
	out, err := v.breaker.Execute(func() (any, error) {
		var resp vetoResponse
		if err := postJSON(ctx, v.client, v.url, vetoRequest{AssetID: asset}, &resp); err != nil {
			return nil, err
		}
		return resp.Approve, nil
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
