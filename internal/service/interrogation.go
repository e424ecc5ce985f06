package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/verity/internal/domain"
	"go.uber.org/zap"
)

// Termination reasons recorded when a hypothesis leaves ACTIVE.
const (
	TerminationConverged      = "confidence_threshold_reached"
	TerminationBudget         = "budget_exceeded"
	TerminationIterations     = "max_iterations_reached"
	TerminationOracleFailures = "consecutive_oracle_failures"
	TerminationDeadline       = "global_deadline"
)

// fallbackTopic is interrogated when a hypothesis arrives with neither seed
// topics nor evidence.
const fallbackTopic = "general"

// ForkRequest signals the engine that a hypothesis hit a contradiction worth
// isolating. The snapshot is a deep copy of the parent's state as of the
// moment before the conflicting item was processed; the engine attaches
// Adopted to the child so the parent retains the original claim and the child
// the alternative.
type ForkRequest struct {
	Parent   *domain.Hypothesis
	Snapshot *domain.CognitiveState
	Adopted  domain.EvidenceItem
	Cause    domain.Contradiction
}

// ForkFunc admits a fork into the scheduling pool. It returns false when the
// engine declines, in which case the worker keeps the conflicting item on the
// parent and records the contradiction as unresolved.
type ForkFunc func(ForkRequest) bool

// InterrogationWorker drives one hypothesis from ACTIVE to a terminal status.
// A worker never owns more than one hypothesis at a time and never issues a
// second oracle query before the first resolves.
type InterrogationWorker struct {
	oracle  domain.SourceOracle
	scoring ScoringStrategy
	cfg     EngineConfig
	logger  *zap.Logger
}

func NewInterrogationWorker(oracle domain.SourceOracle, scoring ScoringStrategy, cfg EngineConfig, logger *zap.Logger) *InterrogationWorker {
	return &InterrogationWorker{
		oracle:  oracle,
		scoring: scoring,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes the interrogation loop until the hypothesis converges or is
// exhausted. fork may be nil to disable forking entirely. A single oracle
// failure is retried implicitly by the next iteration picking a new query;
// only the consecutive-failure ceiling escalates it.
func (w *InterrogationWorker) Run(ctx context.Context, h *domain.Hypothesis, fork ForkFunc) {
	failures := 0

	for h.Status == domain.StatusActive {
		// Deadline checks happen between iterations, not only at the oracle
		// boundary.
		if ctx.Err() != nil {
			w.terminate(h, domain.StatusExhausted, TerminationDeadline, true)
			return
		}

		topic, query := w.nextQuery(h)

		start := time.Now()
		queryCtx, cancel := context.WithTimeout(ctx, w.cfg.PerQueryTimeout)
		items, err := w.oracle.Query(queryCtx, query)
		cancel()

		// The issued query is charged regardless of success.
		h.State.RecordQuery(w.scoring.CostPerQuery + w.scoring.CostPerSecond*time.Since(start).Seconds())

		if err != nil {
			failures++
			w.logger.Debug("oracle query failed",
				zap.String("hypothesis_id", h.ID.String()),
				zap.String("topic", topic),
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
			if failures > w.cfg.MaxConsecutiveFailures {
				w.terminate(h, domain.StatusExhausted, TerminationOracleFailures, true)
				return
			}
		} else {
			failures = 0
			for _, item := range items {
				w.absorb(h, item, fork)
			}
		}

		confidence := w.scoring.Confidence(h.State)
		uncertainty := w.scoring.Uncertainty(h.State, confidence)
		h.State.SetScores(confidence, uncertainty)

		switch {
		case confidence >= w.cfg.ConfidenceThreshold:
			w.terminate(h, domain.StatusConverged, TerminationConverged, false)
		case h.State.CostSpent() >= w.cfg.BudgetCeiling:
			w.terminate(h, domain.StatusExhausted, TerminationBudget, false)
		case h.State.QueriesIssued() >= w.cfg.MaxIterations:
			w.terminate(h, domain.StatusExhausted, TerminationIterations, false)
		}
	}
}

func (w *InterrogationWorker) terminate(h *domain.Hypothesis, status domain.HypothesisStatus, reason string, forceHigh bool) {
	h.Status = status
	if forceHigh {
		h.State.ForceUncertainty(domain.UncertaintyHigh)
	}
	w.logger.Info("hypothesis terminal",
		zap.String("hypothesis_id", h.ID.String()),
		zap.String("status", string(status)),
		zap.String("reason", reason),
		zap.Float64("confidence", h.State.Confidence()),
		zap.Int("queries_issued", h.State.QueriesIssued()),
		zap.Float64("cost_spent", h.State.CostSpent()))
}

// absorb integrates one evidence item: it is compared against every prior item
// on the same topic; conflicts either spawn a fork (the child adopts the item)
// or, past the fork depth limit, are recorded as unresolved contradictions
// while the item stays on this hypothesis.
func (w *InterrogationWorker) absorb(h *domain.Hypothesis, item domain.EvidenceItem, fork ForkFunc) {
	var conflicts []domain.Contradiction
	for _, prior := range h.State.Evidence(item.Topic) {
		severity, contradicts := w.scoring.Compare(prior, item)
		if !contradicts {
			continue
		}
		conflicts = append(conflicts, domain.Contradiction{
			Topic:    item.Topic,
			ClaimA:   prior.Content,
			ClaimB:   item.Content,
			SourceA:  prior.SourceID,
			SourceB:  item.SourceID,
			Severity: severity,
		})
	}

	if len(conflicts) == 0 {
		h.State.AddEvidence(item)
		return
	}

	if fork != nil && h.ForkDepth < w.cfg.MaxForkDepth {
		// Snapshot before the conflicting item (and its contradictions) touch
		// the parent's ledger.
		snapshot := h.State.Clone()
		admitted := fork(ForkRequest{
			Parent:   h,
			Snapshot: snapshot,
			Adopted:  item,
			Cause:    worstConflict(conflicts),
		})
		if admitted {
			for _, c := range conflicts {
				c.Forked = true
				h.State.AddContradiction(c)
			}
			return
		}
	}

	// Fork depth limit reached (or forking disabled): both claims co-exist
	// here and the contradictions count toward the penalty only.
	for _, c := range conflicts {
		h.State.AddContradiction(c)
	}
	h.State.AddEvidence(item)
}

func worstConflict(conflicts []domain.Contradiction) domain.Contradiction {
	worst := conflicts[0]
	for _, c := range conflicts[1:] {
		if c.Severity > worst.Severity {
			worst = c
		}
	}
	return worst
}

// nextQuery derives the next query from the current state: the topic with the
// least evidence is interrogated first, ties broken by lexical order. The
// query text is reshaped as the state evolves: base query, then
// clarification of the latest unresolved contradiction, then deepening while
// confidence stays low, then an alternative angle while uncertainty stays
// high.
func (w *InterrogationWorker) nextQuery(h *domain.Hypothesis) (topic, query string) {
	topic = w.nextTopic(h)

	parts := []string{topic}
	assumptions := append([]string(nil), h.Assumptions...)
	sort.Strings(assumptions)
	parts = append(parts, assumptions...)
	if h.Strategy != "" {
		parts = append(parts, h.Strategy)
	}
	base := strings.Join(parts, " ")

	state := h.State
	switch {
	case state.TotalEvidence() == 0:
		query = base
	case latestUnresolved(state) != "":
		query = "clarify " + truncateClaim(latestUnresolved(state))
	case state.Confidence() < LowUncertaintyFloor:
		query = "detailed " + base
	case state.Uncertainty() == domain.UncertaintyHigh:
		query = "alternative view " + base
	default:
		query = base
	}
	return topic, query
}

// nextTopic picks the least-evidenced topic among the planner's seeds and the
// topics discovered so far, ties broken lexically.
func (w *InterrogationWorker) nextTopic(h *domain.Hypothesis) string {
	seen := make(map[string]struct{})
	var candidates []string
	for _, t := range h.Topics {
		if _, ok := seen[t]; !ok && t != "" {
			seen[t] = struct{}{}
			candidates = append(candidates, t)
		}
	}
	for _, t := range h.State.Topics() {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return fallbackTopic
	}

	sort.Strings(candidates)
	best := candidates[0]
	bestCount := h.State.EvidenceCount(best)
	for _, t := range candidates[1:] {
		if c := h.State.EvidenceCount(t); c < bestCount {
			best, bestCount = t, c
		}
	}
	return best
}

func latestUnresolved(state *domain.CognitiveState) string {
	contradictions := state.Contradictions()
	for i := len(contradictions) - 1; i >= 0; i-- {
		if !contradictions[i].Forked {
			return contradictions[i].ClaimA
		}
	}
	return ""
}

func truncateClaim(claim string) string {
	const maxLen = 50
	if len(claim) <= maxLen {
		return claim
	}
	return fmt.Sprintf("%.*s", maxLen, claim)
}
