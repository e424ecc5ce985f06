package service

import (
	"math"
	"strings"

	"github.com/Harshitk-cp/verity/internal/domain"
)

// Scoring constants
const (
	// Confidence recomputation
	DefaultRecencyBase       = 0.9  // Per-step weight decay for older evidence
	DefaultDecayFactor       = 0.85 // Per-query decay of a contradiction's penalty
	DefaultPenaltyNormalizer = 4.0  // Severity mass that saturates the penalty at 1

	// Uncertainty derivation
	HighSeverityThreshold   = 0.6 // Unresolved contradiction at/above this forces HIGH
	CertainConfidenceFloor  = 0.8 // CERTAIN requires this confidence and zero contradictions
	LowUncertaintyFloor     = 0.5 // Below CERTAIN, this confidence still rates LOW
	MinCorroboratingSources = 2   // Fewer distinct sources caps the rating at MEDIUM

	// Claim comparison
	DefaultDissimilarityThreshold = 0.25 // Lexical overlap needed before opposed claims count as a contradiction
	minSharedContentWords         = 3    // Claims sharing fewer words are about different things

	// Cost accounting
	DefaultCostPerQuery  = 1.0
	DefaultCostPerSecond = 0.0
)

// negationWords flag the polarity of a claim. Two claims on the same topic
// with opposite polarity and high lexical overlap are treated as contradictory.
var negationWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "none": {},
	"nobody": {}, "nothing": {}, "cannot": {}, "isn't": {}, "wasn't": {},
	"don't": {}, "doesn't": {}, "didn't": {}, "won't": {}, "false": {},
}

// ScoringStrategy bundles the confidence, uncertainty, cost, and
// claim-comparison rules as configuration plus pure functions. It is passed
// into the engine as a value; there is no subclassing or dynamic dispatch.
type ScoringStrategy struct {
	RecencyBase            float64
	DecayFactor            float64
	PenaltyNormalizer      float64
	DissimilarityThreshold float64
	CostPerQuery           float64
	CostPerSecond          float64
}

// DefaultScoring returns the process-wide default strategy.
func DefaultScoring() ScoringStrategy {
	return ScoringStrategy{
		RecencyBase:            DefaultRecencyBase,
		DecayFactor:            DefaultDecayFactor,
		PenaltyNormalizer:      DefaultPenaltyNormalizer,
		DissimilarityThreshold: DefaultDissimilarityThreshold,
		CostPerQuery:           DefaultCostPerQuery,
		CostPerSecond:          DefaultCostPerSecond,
	}
}

// Confidence recomputes a state's confidence:
//
//	confidence = (Σ evidence.confidence × recencyWeight) / (Σ recencyWeight)
//	             × (1 − contradictionPenalty)
//
// recencyWeight(e) = RecencyBase^(latestSeq − e.Seq), so ages are measured in
// discovery steps and replayed runs reproduce the same scores. No evidence
// means zero confidence.
func (s ScoringStrategy) Confidence(state *domain.CognitiveState) float64 {
	items := state.AllEvidence()
	if len(items) == 0 {
		return 0
	}

	latest := items[len(items)-1].Seq
	var weightedSum, totalWeight float64
	for _, item := range items {
		w := math.Pow(s.RecencyBase, float64(latest-item.Seq))
		weightedSum += item.Confidence * w
		totalWeight += w
	}

	confidence := weightedSum / totalWeight
	confidence *= 1 - s.ContradictionPenalty(state)

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// ContradictionPenalty returns the [0,1] multiplier discount:
//
//	min(1, Σ contradiction.severity × DecayFactor^age / PenaltyNormalizer)
//
// where age counts queries issued since the contradiction was recorded.
func (s ScoringStrategy) ContradictionPenalty(state *domain.CognitiveState) float64 {
	var sum float64
	for _, c := range state.Contradictions() {
		age := state.QueriesIssued() - c.Seq
		if age < 0 {
			age = 0
		}
		sum += c.Severity * math.Pow(s.DecayFactor, float64(age))
	}

	penalty := sum / s.PenaltyNormalizer
	if penalty > 1 {
		return 1
	}
	return penalty
}

// Uncertainty derives the level from evidence and contradictions. Ordered
// rule, first match wins.
func (s ScoringStrategy) Uncertainty(state *domain.CognitiveState, confidence float64) domain.UncertaintyLevel {
	if state.TotalEvidence() == 0 {
		return domain.UncertaintyUnknown
	}

	contradictions := state.Contradictions()
	for _, c := range contradictions {
		if !c.Forked && c.Severity >= HighSeverityThreshold {
			return domain.UncertaintyHigh
		}
	}

	if state.DistinctSourceCount() < MinCorroboratingSources {
		return domain.UncertaintyMedium
	}

	if confidence >= CertainConfidenceFloor && len(contradictions) == 0 {
		return domain.UncertaintyCertain
	}

	if confidence >= LowUncertaintyFloor {
		return domain.UncertaintyLow
	}

	return domain.UncertaintyMedium
}

// Compare decides whether a new claim contradicts a prior claim on the same
// topic and, if so, how severely. The heuristic is deterministic and purely
// lexical: the claims must have opposite negation polarity and share enough
// content words to be about the same assertion. Severity grows with lexical
// overlap (a more direct conflict) and with the gap between the two items'
// reported confidences.
func (s ScoringStrategy) Compare(prior, next domain.EvidenceItem) (severity float64, contradicts bool) {
	if prior.Topic != next.Topic {
		return 0, false
	}

	priorWords := claimWords(prior.Content)
	nextWords := claimWords(next.Content)

	if hasNegation(priorWords) == hasNegation(nextWords) {
		return 0, false
	}

	shared := 0
	for w := range priorWords {
		if _, isNeg := negationWords[w]; isNeg {
			continue
		}
		if _, ok := nextWords[w]; ok {
			shared++
		}
	}
	if shared < minSharedContentWords {
		return 0, false
	}

	union := len(priorWords) + len(nextWords) - shared
	overlap := 0.0
	if union > 0 {
		overlap = float64(shared) / float64(union)
	}
	if overlap < s.DissimilarityThreshold {
		return 0, false
	}

	severity = 0.4 + 0.3*overlap + 0.3*math.Abs(prior.Confidence-next.Confidence)
	if severity > 1 {
		severity = 1
	}
	return severity, true
}

func claimWords(content string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}

func hasNegation(words map[string]struct{}) bool {
	for w := range words {
		if _, ok := negationWords[w]; ok {
			return true
		}
	}
	return false
}
