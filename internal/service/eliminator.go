package service

import (
	"sort"

	"github.com/Harshitk-cp/verity/internal/domain"
	"go.uber.org/zap"
)

// Elimination reasons
const (
	ReasonLowConfidence        = "low_confidence"
	ReasonInsufficientEvidence = "insufficient_evidence"
	ReasonCostExceeded         = "cost_exceeded"
)

// HypothesisEliminator reduces the terminal hypothesis set to a ranked
// surviving subset. Eliminated hypotheses are retained with their reason for
// auditability, never discarded. Elimination applies only to terminal
// hypotheses; the engine guarantees none are ACTIVE.
type HypothesisEliminator struct {
	minConfidence float64
	minEvidence   int
	maxCost       float64
	logger        *zap.Logger
}

func NewHypothesisEliminator(cfg EngineConfig, logger *zap.Logger) *HypothesisEliminator {
	return &HypothesisEliminator{
		minConfidence: cfg.MinConfidence,
		minEvidence:   cfg.MinEvidence,
		maxCost:       cfg.MaxCost,
		logger:        logger,
	}
}

// Eliminate partitions hypotheses into ranked survivors and eliminated.
// Re-running on an already-partitioned set with the same config yields the
// same partition.
func (e *HypothesisEliminator) Eliminate(hypotheses []*domain.Hypothesis) (survivors, eliminated []*domain.Hypothesis) {
	for _, h := range hypotheses {
		if h.Status == domain.StatusEliminated {
			eliminated = append(eliminated, h)
			continue
		}
		if !h.Status.Terminal() {
			// Should not happen behind the engine; keep it out of both sets'
			// mutations and treat it as surviving so nothing is lost.
			e.logger.Warn("eliminator received non-terminal hypothesis",
				zap.String("hypothesis_id", h.ID.String()),
				zap.String("status", string(h.Status)))
			survivors = append(survivors, h)
			continue
		}

		if reason, drop := e.shouldEliminate(h); drop {
			h.Status = domain.StatusEliminated
			h.EliminationReason = reason
			eliminated = append(eliminated, h)
			e.logger.Debug("hypothesis eliminated",
				zap.String("hypothesis_id", h.ID.String()),
				zap.String("reason", reason),
				zap.Float64("confidence", h.State.Confidence()))
			continue
		}
		survivors = append(survivors, h)
	}

	return e.Rank(survivors), eliminated
}

// shouldEliminate applies the criteria; any single one holding eliminates.
func (e *HypothesisEliminator) shouldEliminate(h *domain.Hypothesis) (string, bool) {
	if h.State.Confidence() < e.minConfidence {
		return ReasonLowConfidence, true
	}
	if h.EvidenceCount() < e.minEvidence {
		return ReasonInsufficientEvidence, true
	}
	if h.State.CostSpent() > e.maxCost {
		return ReasonCostExceeded, true
	}
	return "", false
}

// Rank orders hypotheses by confidence descending, then evidence count
// descending, then ID ascending so results are deterministic regardless of
// completion order.
func (e *HypothesisEliminator) Rank(hypotheses []*domain.Hypothesis) []*domain.Hypothesis {
	ranked := append([]*domain.Hypothesis(nil), hypotheses...)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].State.Confidence() != ranked[j].State.Confidence() {
			return ranked[i].State.Confidence() > ranked[j].State.Confidence()
		}
		if ranked[i].EvidenceCount() != ranked[j].EvidenceCount() {
			return ranked[i].EvidenceCount() > ranked[j].EvidenceCount()
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})
	return ranked
}
