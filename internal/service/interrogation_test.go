package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Harshitk-cp/verity/internal/domain"
	"go.uber.org/zap"
)

// scriptedOracle serves responses in call order; calls past the script get the
// last response. Safe for concurrent use.
type scriptedOracle struct {
	mu        sync.Mutex
	responses [][]domain.EvidenceItem
	calls     []string
}

func (o *scriptedOracle) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	i := len(o.calls)
	o.calls = append(o.calls, text)
	if len(o.responses) == 0 {
		return nil, nil
	}
	if i >= len(o.responses) {
		i = len(o.responses) - 1
	}
	return o.responses[i], nil
}

func (o *scriptedOracle) queries() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

// failingOracle fails every call.
type failingOracle struct{}

func (failingOracle) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	return nil, domain.ErrOracleUnavailable
}

// blockingOracle parks until the caller's context expires.
type blockingOracle struct{}

func (blockingOracle) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.BudgetCeiling = 100
	cfg.MaxCost = 200
	return cfg
}

func TestWorkerConvergesWhenConfidenceCrossesThreshold(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "initial read points at the cache", "src-a", 0.5)},
		{evidence("latency", "profiling confirms cache pressure", "src-b", 0.7)},
		{evidence("latency", "cache fix removed the regression", "src-c", 0.9)},
	}}

	cfg := testConfig()
	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())

	h := domain.NewHypothesis([]string{"cache misses dominate"}, []string{"latency"}, "")
	worker.Run(context.Background(), h, nil)

	if h.Status != domain.StatusConverged {
		t.Fatalf("status = %s, want converged", h.Status)
	}
	if got := h.State.QueriesIssued(); got != 3 {
		t.Errorf("queries issued = %d, want 3", got)
	}
	if h.State.Confidence() < cfg.ConfidenceThreshold {
		t.Errorf("converged below threshold: %v", h.State.Confidence())
	}
	if h.State.CostSpent() != 3 {
		t.Errorf("cost spent = %v, want 3", h.State.CostSpent())
	}
}

func TestWorkerExhaustsAfterConsecutiveOracleFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 3
	worker := NewInterrogationWorker(failingOracle{}, DefaultScoring(), cfg, zap.NewNop())

	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(context.Background(), h, nil)

	if h.Status != domain.StatusExhausted {
		t.Fatalf("status = %s, want exhausted", h.Status)
	}
	if h.State.Uncertainty() != domain.UncertaintyHigh {
		t.Errorf("uncertainty = %s, want forced high", h.State.Uncertainty())
	}
	if h.State.Confidence() != 0 || h.State.TotalEvidence() != 0 {
		t.Errorf("exhausted without evidence should score zero, got conf=%v evidence=%d",
			h.State.Confidence(), h.State.TotalEvidence())
	}
	// Failed queries are still charged.
	if got := h.State.QueriesIssued(); got != 4 {
		t.Errorf("queries issued = %d, want 4", got)
	}
	if h.State.CostSpent() != 4 {
		t.Errorf("cost spent = %v, want 4", h.State.CostSpent())
	}
}

func TestWorkerExhaustsAtIterationCeiling(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "weak signal only", "src-a", 0.2)},
	}}
	cfg := testConfig()
	cfg.MaxIterations = 3
	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())

	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(context.Background(), h, nil)

	if h.Status != domain.StatusExhausted {
		t.Fatalf("status = %s, want exhausted", h.Status)
	}
	if got := h.State.QueriesIssued(); got != 3 {
		t.Errorf("queries issued = %d, want 3", got)
	}
	// Derived, not forced: a single source rates MEDIUM.
	if h.State.Uncertainty() != domain.UncertaintyMedium {
		t.Errorf("uncertainty = %s, want medium", h.State.Uncertainty())
	}
}

func TestWorkerExhaustsAtBudgetCeiling(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "weak signal only", "src-a", 0.2)},
	}}
	cfg := testConfig()
	cfg.BudgetCeiling = 10
	scoring := DefaultScoring()
	scoring.CostPerQuery = 5

	worker := NewInterrogationWorker(oracle, scoring, cfg, zap.NewNop())
	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(context.Background(), h, nil)

	if h.Status != domain.StatusExhausted {
		t.Fatalf("status = %s, want exhausted", h.Status)
	}
	if h.State.CostSpent() < cfg.BudgetCeiling {
		t.Errorf("terminated under budget: %v", h.State.CostSpent())
	}
	if got := h.State.QueriesIssued(); got != 2 {
		t.Errorf("queries issued = %d, want 2", got)
	}
}

func TestWorkerRecordsUnresolvedContradictionAtDepthLimit(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "the cache is the main bottleneck", "src-a", 0.6)},
		{evidence("latency", "the cache is not the main bottleneck", "src-b", 0.6)},
	}}
	cfg := testConfig()
	cfg.MaxForkDepth = 0
	cfg.MaxIterations = 2

	forkCalled := false
	fork := func(ForkRequest) bool {
		forkCalled = true
		return true
	}

	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())
	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(context.Background(), h, fork)

	if forkCalled {
		t.Error("fork requested despite depth limit of zero")
	}
	// Both claims co-exist on the same hypothesis.
	if got := h.State.TotalEvidence(); got != 2 {
		t.Fatalf("evidence count = %d, want 2", got)
	}
	contradictions := h.State.Contradictions()
	if len(contradictions) != 1 {
		t.Fatalf("contradictions = %d, want 1", len(contradictions))
	}
	if contradictions[0].Forked {
		t.Error("depth-limited contradiction marked as forked")
	}
	if contradictions[0].Severity < HighSeverityThreshold {
		t.Errorf("severity = %v, want at least %v", contradictions[0].Severity, HighSeverityThreshold)
	}
	if h.State.Uncertainty() != domain.UncertaintyHigh {
		t.Errorf("uncertainty = %s, want high", h.State.Uncertainty())
	}
	// Penalty applied: confidence below the raw recency average of 0.6.
	if h.State.Confidence() >= 0.6 {
		t.Errorf("penalty not applied, confidence = %v", h.State.Confidence())
	}
}

func TestWorkerRequestsForkWithPreDivergenceSnapshot(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "the cache is the main bottleneck", "src-a", 0.6)},
		{evidence("latency", "the cache is not the main bottleneck", "src-b", 0.6)},
	}}
	cfg := testConfig()
	cfg.MaxForkDepth = 2
	cfg.MaxIterations = 2

	var req ForkRequest
	fork := func(r ForkRequest) bool {
		req = r
		return true
	}

	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())
	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(context.Background(), h, fork)

	if req.Snapshot == nil {
		t.Fatal("fork never requested")
	}
	// Snapshot predates the contradicting item but carries the charged query.
	if got := req.Snapshot.TotalEvidence(); got != 1 {
		t.Errorf("snapshot evidence = %d, want 1", got)
	}
	if got := req.Snapshot.QueriesIssued(); got != 2 {
		t.Errorf("snapshot queries = %d, want 2", got)
	}
	if req.Adopted.Content != "the cache is not the main bottleneck" {
		t.Errorf("wrong adopted item: %q", req.Adopted.Content)
	}
	if req.Cause.Severity == 0 {
		t.Error("fork cause missing severity")
	}

	// The parent keeps the original claim only, with the conflict marked forked.
	if got := h.State.TotalEvidence(); got != 1 {
		t.Errorf("parent evidence = %d, want 1", got)
	}
	contradictions := h.State.Contradictions()
	if len(contradictions) != 1 || !contradictions[0].Forked {
		t.Fatalf("parent should record one forked contradiction, got %v", contradictions)
	}
}

func TestWorkerReshapesQueriesFromState(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "the cache is the main bottleneck", "src-a", 0.6)},
		{evidence("latency", "the cache is not the main bottleneck", "src-b", 0.6)},
		{evidence("latency", "profiling shows lock contention instead", "src-c", 0.3)},
	}}
	cfg := testConfig()
	cfg.MaxForkDepth = 0
	cfg.MaxIterations = 3

	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())
	h := domain.NewHypothesis([]string{"cache misses dominate"}, []string{"latency"}, "depth-first")
	worker.Run(context.Background(), h, nil)

	calls := oracle.queries()
	if len(calls) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(calls))
	}
	// The base query carries topic, assumptions, and strategy.
	for _, part := range []string{"latency", "cache misses dominate", "depth-first"} {
		if !strings.Contains(calls[0], part) {
			t.Errorf("base query %q missing %q", calls[0], part)
		}
	}
	// After the unresolved contradiction, the query pivots to clarification of
	// the prior claim.
	if !strings.HasPrefix(calls[2], "clarify ") {
		t.Errorf("post-contradiction query = %q, want clarify prefix", calls[2])
	}
	if !strings.Contains(calls[2], "the cache is the main bottleneck") {
		t.Errorf("clarification does not target the disputed claim: %q", calls[2])
	}
}

func TestWorkerInterrogatesLeastEvidencedTopicFirst(t *testing.T) {
	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "p99 is 40ms", "src-a", 0.2)},
		{evidence("throughput", "handles 10k rps", "src-b", 0.2)},
	}}
	cfg := testConfig()
	cfg.MaxIterations = 3

	worker := NewInterrogationWorker(oracle, DefaultScoring(), cfg, zap.NewNop())
	h := domain.NewHypothesis(nil, []string{"throughput", "latency"}, "")
	worker.Run(context.Background(), h, nil)

	calls := oracle.queries()
	if len(calls) < 3 {
		t.Fatalf("expected 3 queries, got %d", len(calls))
	}
	// Both seeds start empty: lexical order breaks the tie.
	if !strings.Contains(calls[0], "latency") {
		t.Errorf("first query should target latency, got %q", calls[0])
	}
	// After latency gains evidence, throughput is the least-evidenced topic.
	if !strings.Contains(calls[1], "throughput") {
		t.Errorf("second query should target throughput, got %q", calls[1])
	}
}

func TestWorkerStopsImmediatelyOnExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle := &scriptedOracle{responses: [][]domain.EvidenceItem{
		{evidence("latency", "p99 is 40ms", "src-a", 0.9)},
	}}
	worker := NewInterrogationWorker(oracle, DefaultScoring(), testConfig(), zap.NewNop())
	h := domain.NewHypothesis(nil, []string{"latency"}, "")
	worker.Run(ctx, h, nil)

	if h.Status != domain.StatusExhausted {
		t.Fatalf("status = %s, want exhausted", h.Status)
	}
	if h.State.Uncertainty() != domain.UncertaintyHigh {
		t.Errorf("uncertainty = %s, want forced high", h.State.Uncertainty())
	}
	if h.State.QueriesIssued() != 0 {
		t.Errorf("queries issued after expired context: %d", h.State.QueriesIssued())
	}
}
