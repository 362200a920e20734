// Package arbiter resolves competing entry signals into the subset that is
// actually allowed to place orders. Candidates compete within concentration
// groups, then against portfolio capacity, then against the external veto.
package arbiter

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/swingops/guard"
)

// PortfolioView is the read-only slice of portfolio state arbitration needs.
// The engine's portfolio satisfies it.
type PortfolioView interface {
	OpenCount() int
	GroupOccupied(group string) bool
}

// Veto approves or rejects a candidate just before order placement. A
// transport error counts as a rejection, never an approval.
type Veto interface {
	Evaluate(ctx context.Context, asset string) (bool, error)
}

// Candidate is an asset that passed every hard guard and the soft gate.
type Candidate struct {
	Asset       string
	Group       string
	Probability float64
}

// Rejection carries the candidate that lost and why.
type Rejection struct {
	Candidate
	Reason string
}

// Outcome is the arbitration result for one evaluation cycle.
type Outcome struct {
	Selected []Candidate
	Rejected []Rejection
}

// Decide runs the full arbitration sequence: group races, occupied-group
// filtering, the exposure cap re-check in descending probability order, then
// the external veto. Ties on probability break toward the lexically smaller
// asset id so runs are reproducible. veto may be nil.
func Decide(ctx context.Context, cands []Candidate, view PortfolioView, veto Veto) Outcome {
	var out Outcome

	winners := groupWinners(cands, &out)

	kept := winners[:0]
	for _, c := range winners {
		if view.GroupOccupied(c.Group) {
			out.Rejected = append(out.Rejected, Rejection{c, fmt.Sprintf("group %q already holds a position", c.Group)})
			continue
		}
		kept = append(kept, c)
	}

	sortByProbability(kept)

	slots := guard.ExposureCap - view.OpenCount()
	if slots < 0 {
		slots = 0
	}
	for i, c := range kept {
		if i >= slots {
			out.Rejected = append(out.Rejected, Rejection{c, "exposure cap reached"})
			continue
		}
		if ok, reason := approved(ctx, veto, c.Asset); !ok {
			out.Rejected = append(out.Rejected, Rejection{c, reason})
			continue
		}
		out.Selected = append(out.Selected, c)
	}

	return out
}

// groupWinners picks the best candidate per concentration group and records
// the losers.
func groupWinners(cands []Candidate, out *Outcome) []Candidate {
	best := make(map[string]Candidate)
	for _, c := range cands {
		cur, ok := best[c.Group]
		if !ok || beats(c, cur) {
			best[c.Group] = c
		}
	}

	for _, c := range cands {
		if w := best[c.Group]; w.Asset != c.Asset {
			out.Rejected = append(out.Rejected, Rejection{c, fmt.Sprintf("lost group %q to %s", c.Group, w.Asset)})
		}
	}

	winners := make([]Candidate, 0, len(best))
	for _, c := range best {
		winners = append(winners, c)
	}
	sortByProbability(winners)
	return winners
}

func beats(a, b Candidate) bool {
	if a.Probability != b.Probability {
		return a.Probability > b.Probability
	}
	return a.Asset < b.Asset
}

func sortByProbability(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool { return beats(cands[i], cands[j]) })
}

func approved(ctx context.Context, veto Veto, asset string) (bool, string) {
	if veto == nil {
		return true, ""
	}
	ok, err := veto.Evaluate(ctx, asset)
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("veto unavailable, rejecting candidate")
		return false, fmt.Sprintf("veto unavailable: %v", err)
	}
	if !ok {
		return false, "vetoed"
	}
	return true, ""
}
