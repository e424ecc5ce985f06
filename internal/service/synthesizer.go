package service

import (
	"sort"
	"time"

	"github.com/Harshitk-cp/verity/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// nearMissFraction scales MinConfidence down to the bar an eliminated
// hypothesis must clear to be surfaced as an alternative.
const nearMissFraction = 0.5

// StateSynthesizer merges surviving hypotheses into one final decision state.
// This is evidence aggregation, not voting: better-corroborated hypotheses
// weigh more.
type StateSynthesizer struct {
	minConfidence float64
	logger        *zap.Logger
}

func NewStateSynthesizer(cfg EngineConfig, logger *zap.Logger) *StateSynthesizer {
	return &StateSynthesizer{
		minConfidence: cfg.MinConfidence,
		logger:        logger,
	}
}

// Synthesize builds the final state from survivors and the eliminated set.
// An empty survivor set is a normal outcome, never a failure: the result
// carries zero confidence, UNKNOWN uncertainty, and the full eliminated set as
// ranked alternatives.
func (s *StateSynthesizer) Synthesize(survivors, eliminated []*domain.Hypothesis) *domain.SynthesizedState {
	if len(survivors) == 0 {
		return s.emptyState(eliminated)
	}

	state := &domain.SynthesizedState{
		DecisionEvidence:         mergeEvidence(survivors),
		Confidence:               aggregateConfidence(survivors),
		ConfidenceInterval:       confidenceSpread(survivors),
		Uncertainty:              worstUncertainty(survivors),
		Alternatives:             s.nearMissAlternatives(eliminated),
		UnresolvedContradictions: unresolvedContradictions(survivors),
		SurvivorIDs:              hypothesisIDs(survivors),
		EliminatedIDs:            hypothesisIDs(eliminated),
		CreatedAt:                time.Now(),
	}

	s.logger.Info("synthesis complete",
		zap.Int("survivors", len(survivors)),
		zap.Int("eliminated", len(eliminated)),
		zap.Int("merged_evidence", len(state.DecisionEvidence)),
		zap.Float64("confidence", state.Confidence),
		zap.String("uncertainty", string(state.Uncertainty)))

	return state
}

// mergeEvidence unions all survivors' evidence, deduplicated by
// (source, topic, content). Order is stable: survivor rank first, discovery
// order within a survivor.
func mergeEvidence(survivors []*domain.Hypothesis) []domain.EvidenceItem {
	seen := make(map[domain.EvidenceKey]struct{})
	var merged []domain.EvidenceItem
	for _, h := range survivors {
		for _, item := range h.State.AllEvidence() {
			key := item.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}

// aggregateConfidence is the evidence-count-weighted average of survivor
// confidences; hypotheses with more corroboration count more. If no survivor
// has evidence, the plain mean is used.
func aggregateConfidence(survivors []*domain.Hypothesis) float64 {
	var weightedSum, totalWeight float64
	for _, h := range survivors {
		w := float64(h.EvidenceCount())
		weightedSum += h.State.Confidence() * w
		totalWeight += w
	}
	if totalWeight == 0 {
		var sum float64
		for _, h := range survivors {
			sum += h.State.Confidence()
		}
		return sum / float64(len(survivors))
	}
	return weightedSum / totalWeight
}

func confidenceSpread(survivors []*domain.Hypothesis) domain.ConfidenceInterval {
	low, high := survivors[0].State.Confidence(), survivors[0].State.Confidence()
	for _, h := range survivors[1:] {
		c := h.State.Confidence()
		if c < low {
			low = c
		}
		if c > high {
			high = c
		}
	}
	return domain.ConfidenceInterval{Low: low, High: high}
}

// worstUncertainty reports the most severe level among survivors; with exactly
// one survivor its own level is used directly.
func worstUncertainty(survivors []*domain.Hypothesis) domain.UncertaintyLevel {
	worst := survivors[0].State.Uncertainty()
	for _, h := range survivors[1:] {
		if u := h.State.Uncertainty(); u.Worse(worst) {
			worst = u
		}
	}
	return worst
}

// nearMissAlternatives surfaces eliminated hypotheses whose confidence still
// cleared half the elimination bar, each with its distinguishing claim.
func (s *StateSynthesizer) nearMissAlternatives(eliminated []*domain.Hypothesis) []domain.Alternative {
	bar := s.minConfidence * nearMissFraction
	var notable []*domain.Hypothesis
	for _, h := range eliminated {
		if h.State.Confidence() >= bar {
			notable = append(notable, h)
		}
	}
	return rankedAlternatives(notable)
}

// unresolvedContradictions collects survivors' contradictions that were never
// forked away (recorded past the depth limit), ordered by severity.
func unresolvedContradictions(survivors []*domain.Hypothesis) []domain.Contradiction {
	var unresolved []domain.Contradiction
	for _, h := range survivors {
		for _, c := range h.State.Contradictions() {
			if !c.Forked {
				unresolved = append(unresolved, c)
			}
		}
	}
	sort.SliceStable(unresolved, func(i, j int) bool {
		return unresolved[i].Severity > unresolved[j].Severity
	})
	return unresolved
}

func (s *StateSynthesizer) emptyState(eliminated []*domain.Hypothesis) *domain.SynthesizedState {
	s.logger.Warn("no surviving hypotheses, synthesizing from eliminated set",
		zap.Int("eliminated", len(eliminated)))
	return &domain.SynthesizedState{
		Confidence:         0,
		ConfidenceInterval: domain.ConfidenceInterval{},
		Uncertainty:        domain.UncertaintyUnknown,
		Alternatives:       rankedAlternatives(eliminated),
		EliminatedIDs:      hypothesisIDs(eliminated),
		CreatedAt:          time.Now(),
	}
}

func rankedAlternatives(hypotheses []*domain.Hypothesis) []domain.Alternative {
	ranked := append([]*domain.Hypothesis(nil), hypotheses...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].State.Confidence() != ranked[j].State.Confidence() {
			return ranked[i].State.Confidence() > ranked[j].State.Confidence()
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})

	alternatives := make([]domain.Alternative, 0, len(ranked))
	for _, h := range ranked {
		alternatives = append(alternatives, domain.Alternative{
			HypothesisID:      h.ID,
			Claim:             distinguishingClaim(h),
			Confidence:        h.State.Confidence(),
			EliminationReason: h.EliminationReason,
		})
	}
	return alternatives
}

// distinguishingClaim is the hypothesis's first assumption, or failing that
// its highest-confidence evidence content.
func distinguishingClaim(h *domain.Hypothesis) string {
	if len(h.Assumptions) > 0 {
		return h.Assumptions[0]
	}
	var best domain.EvidenceItem
	for _, item := range h.State.AllEvidence() {
		if item.Confidence > best.Confidence {
			best = item
		}
	}
	return best.Content
}

func hypothesisIDs(hypotheses []*domain.Hypothesis) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(hypotheses))
	for _, h := range hypotheses {
		ids = append(ids, h.ID)
	}
	return ids
}
