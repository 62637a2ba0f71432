// Package arbiter merges multiple agents' recommendations into one
// authoritative decision.
//
// Arbitrate is a pure function of its inputs: identical contributions in
// any order always yield an identical Decision. That makes every decision
// replayable from the audit trail and unit-testable independent of timing.
//
// The algorithm:
//  1. Discard responses with confidence below the configured floor.
//  2. Group the survivors by recommendation kind.
//  3. Score each group as the sum of (agent weight × response confidence).
//  4. Pick the highest-scoring group; break ties by the configured
//     priority order, conservative actions first.
//  5. If nothing survives filtering, force an escalation. The hub never
//     silently does nothing on unresolved input.
package arbiter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/logia/logia/internal/protocol"
)

// EscalateNoInput is the rationale reason used when arbitration has no
// actionable agent input to work with.
const EscalateNoInput = "no actionable agent input"

// Rule names the arbitration branch that produced a decision.
type Rule string

const (
	// RuleHighestScore means one group outscored all others outright.
	RuleHighestScore Rule = "highest-score"

	// RuleTieBreak means two or more groups tied and the priority order decided.
	RuleTieBreak Rule = "priority-tie-break"

	// RuleForcedEscalate means no responses survived filtering.
	RuleForcedEscalate Rule = "forced-escalate"
)

// Config holds the arbitration tunables.
type Config struct {
	// ConfidenceFloor discards responses below this confidence. In [0,1].
	ConfidenceFloor float64

	// Priority orders recommendation kinds for tie-breaking, most
	// preferred first. Empty means DefaultPriority.
	Priority []protocol.RecommendationKind
}

// DefaultPriority is the conservative-first tie-break order:
// prefer the safer action when scores are equal.
func DefaultPriority() []protocol.RecommendationKind {
	return []protocol.RecommendationKind{
		protocol.RecommendCancel,
		protocol.RecommendEscalate,
		protocol.RecommendReroute,
		protocol.RecommendNoAction,
	}
}

// Contribution pairs an agent's response with the confidence weight the
// agent declared at registration.
type Contribution struct {
	Agent    string
	Weight   float64
	Response protocol.Response
}

// Decision is the arbitration output: the chosen recommendation, the
// responses that carried it, the rule that fired, and a human-readable
// rationale. A Decision is immutable once produced.
type Decision struct {
	Recommendation protocol.Recommendation
	Contributors   []Contribution
	Rule           Rule
	Rationale      string
	Scores         map[protocol.RecommendationKind]float64
}

// Arbitrate merges the contributions into a single Decision. It is
// deterministic and order-independent: the result depends only on the
// multiset of contributions.
func Arbitrate(cfg Config, contributions []Contribution) Decision {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = DefaultPriority()
	}
	rank := make(map[protocol.RecommendationKind]int, len(priority))
	for i, k := range priority {
		rank[k] = i
	}

	// 1. Noise filtering.
	var surviving []Contribution
	for _, c := range contributions {
		if c.Response.Confidence >= cfg.ConfidenceFloor {
			surviving = append(surviving, c)
		}
	}

	// 5. Nothing actionable: forced escalation.
	if len(surviving) == 0 {
		return Decision{
			Recommendation: protocol.Recommendation{
				Kind:   protocol.RecommendEscalate,
				Reason: EscalateNoInput,
			},
			Rule: RuleForcedEscalate,
			Rationale: fmt.Sprintf("forced escalate: %s (%d responses, all below confidence floor %.2f)",
				EscalateNoInput, len(contributions), cfg.ConfidenceFloor),
			Scores: map[protocol.RecommendationKind]float64{},
		}
	}

	// 2 + 3. Group by kind and score each group.
	groups := make(map[protocol.RecommendationKind][]Contribution)
	scores := make(map[protocol.RecommendationKind]float64)
	for _, c := range surviving {
		kind := c.Response.Recommendation.Kind
		groups[kind] = append(groups[kind], c)
		scores[kind] += c.Weight * c.Response.Confidence
	}

	// 4. Highest score wins; priority order breaks ties.
	kinds := make([]protocol.RecommendationKind, 0, len(groups))
	for k := range groups {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if scores[kinds[i]] != scores[kinds[j]] {
			return scores[kinds[i]] > scores[kinds[j]]
		}
		return rank[kinds[i]] < rank[kinds[j]]
	})

	winner := kinds[0]
	rule := RuleHighestScore
	if len(kinds) > 1 && scores[kinds[1]] == scores[winner] {
		rule = RuleTieBreak
	}

	contributors := groups[winner]
	sort.Slice(contributors, func(i, j int) bool {
		// Order contributors deterministically: strongest vote first,
		// agent name as the final tie-break.
		si := contributors[i].Weight * contributors[i].Response.Confidence
		sj := contributors[j].Weight * contributors[j].Response.Confidence
		if si != sj {
			return si > sj
		}
		return contributors[i].Agent < contributors[j].Agent
	})

	return Decision{
		Recommendation: contributors[0].Response.Recommendation,
		Contributors:   contributors,
		Rule:           rule,
		Rationale:      buildRationale(rule, winner, scores, contributors),
		Scores:         scores,
	}
}

// buildRationale renders the audit-facing explanation of the outcome.
func buildRationale(rule Rule, winner protocol.RecommendationKind, scores map[protocol.RecommendationKind]float64, contributors []Contribution) string {
	kinds := make([]protocol.RecommendationKind, 0, len(scores))
	for k := range scores {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%.3f", k, scores[k])
	}

	agents := make([]string, len(contributors))
	for i, c := range contributors {
		agents[i] = c.Agent
	}

	switch rule {
	case RuleTieBreak:
		return fmt.Sprintf("%s won by priority tie-break (scores: %s; contributors: %s)",
			winner, strings.Join(parts, ", "), strings.Join(agents, ", "))
	default:
		return fmt.Sprintf("%s won by aggregate score (scores: %s; contributors: %s)",
			winner, strings.Join(parts, ", "), strings.Join(agents, ", "))
	}
}
