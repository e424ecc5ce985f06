package service

import (
	"math"
	"testing"

	"github.com/Harshitk-cp/verity/internal/domain"
)

func evidence(topic, content, source string, confidence float64) domain.EvidenceItem {
	return domain.EvidenceItem{
		Content:    content,
		SourceID:   source,
		Confidence: confidence,
		Topic:      topic,
	}
}

func TestConfidenceEmptyState(t *testing.T) {
	s := DefaultScoring()
	state := domain.NewCognitiveState()

	if got := s.Confidence(state); got != 0 {
		t.Errorf("empty state confidence = %v, want 0", got)
	}
	if got := s.Uncertainty(state, 0); got != domain.UncertaintyUnknown {
		t.Errorf("empty state uncertainty = %s, want unknown", got)
	}
}

func TestConfidenceSingleItem(t *testing.T) {
	s := DefaultScoring()
	state := domain.NewCognitiveState()
	state.AddEvidence(evidence("latency", "p99 is 40ms", "src-a", 0.7))

	if got := s.Confidence(state); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("single item confidence = %v, want 0.7", got)
	}
}

func TestConfidenceWeighsRecentEvidenceMore(t *testing.T) {
	s := DefaultScoring()

	recentHigh := domain.NewCognitiveState()
	recentHigh.AddEvidence(evidence("latency", "slow", "src-a", 0.2))
	recentHigh.AddEvidence(evidence("latency", "fast", "src-b", 0.8))

	recentLow := domain.NewCognitiveState()
	recentLow.AddEvidence(evidence("latency", "fast", "src-a", 0.8))
	recentLow.AddEvidence(evidence("latency", "slow", "src-b", 0.2))

	ch := s.Confidence(recentHigh)
	cl := s.Confidence(recentLow)

	// Same evidence set, different discovery order: the newer item dominates.
	wantHigh := (0.2*0.9 + 0.8) / 1.9
	wantLow := (0.8*0.9 + 0.2) / 1.9
	if math.Abs(ch-wantHigh) > 1e-9 {
		t.Errorf("recent-high confidence = %v, want %v", ch, wantHigh)
	}
	if math.Abs(cl-wantLow) > 1e-9 {
		t.Errorf("recent-low confidence = %v, want %v", cl, wantLow)
	}
	if ch <= cl {
		t.Errorf("recency weighting inverted: %v <= %v", ch, cl)
	}
}

func TestConfidenceRisesWithCorroboration(t *testing.T) {
	s := DefaultScoring()
	state := domain.NewCognitiveState()
	state.AddEvidence(evidence("latency", "p99 is 40ms", "src-a", 0.4))
	before := s.Confidence(state)

	state.AddEvidence(evidence("latency", "p99 stays near 40ms", "src-b", 0.9))
	after := s.Confidence(state)

	if after <= before {
		t.Errorf("corroborating evidence lowered confidence: %v -> %v", before, after)
	}
}

func TestContradictionPenaltyReducesConfidence(t *testing.T) {
	s := DefaultScoring()

	clean := domain.NewCognitiveState()
	clean.AddEvidence(evidence("latency", "p99 is 40ms", "src-a", 0.8))

	contested := domain.NewCognitiveState()
	contested.AddEvidence(evidence("latency", "p99 is 40ms", "src-a", 0.8))
	contested.AddContradiction(domain.Contradiction{Topic: "latency", Severity: 0.8})

	if s.Confidence(contested) >= s.Confidence(clean) {
		t.Errorf("contradiction did not reduce confidence: %v >= %v",
			s.Confidence(contested), s.Confidence(clean))
	}
}

func TestContradictionPenaltyDecaysWithAge(t *testing.T) {
	s := DefaultScoring()
	state := domain.NewCognitiveState()
	state.AddContradiction(domain.Contradiction{Topic: "latency", Severity: 0.8})

	fresh := s.ContradictionPenalty(state)
	if math.Abs(fresh-0.2) > 1e-9 {
		t.Errorf("fresh penalty = %v, want 0.2", fresh)
	}

	state.RecordQuery(1)
	state.RecordQuery(1)

	aged := s.ContradictionPenalty(state)
	want := 0.8 * math.Pow(0.85, 2) / 4.0
	if math.Abs(aged-want) > 1e-9 {
		t.Errorf("aged penalty = %v, want %v", aged, want)
	}
	if aged >= fresh {
		t.Errorf("penalty did not decay: %v >= %v", aged, fresh)
	}
}

func TestContradictionPenaltySaturates(t *testing.T) {
	s := DefaultScoring()
	state := domain.NewCognitiveState()
	for i := 0; i < 10; i++ {
		state.AddContradiction(domain.Contradiction{Topic: "latency", Severity: 1.0})
	}
	state.AddEvidence(evidence("latency", "p99 is 40ms", "src-a", 0.9))

	if got := s.ContradictionPenalty(state); got != 1 {
		t.Errorf("penalty = %v, want saturation at 1", got)
	}
	if got := s.Confidence(state); got != 0 {
		t.Errorf("fully penalized confidence = %v, want 0", got)
	}
}

func TestUncertaintyOrderedRules(t *testing.T) {
	s := DefaultScoring()

	// An unresolved severe contradiction wins even over high confidence.
	severe := domain.NewCognitiveState()
	severe.AddEvidence(evidence("latency", "a", "src-a", 0.9))
	severe.AddEvidence(evidence("latency", "b", "src-b", 0.9))
	severe.AddContradiction(domain.Contradiction{Topic: "latency", Severity: 0.7})
	if got := s.Uncertainty(severe, 0.95); got != domain.UncertaintyHigh {
		t.Errorf("severe unresolved contradiction: got %s, want high", got)
	}

	// The same contradiction forked away no longer forces HIGH.
	forked := domain.NewCognitiveState()
	forked.AddEvidence(evidence("latency", "a", "src-a", 0.9))
	forked.AddEvidence(evidence("latency", "b", "src-b", 0.9))
	forked.AddContradiction(domain.Contradiction{Topic: "latency", Severity: 0.7, Forked: true})
	if got := s.Uncertainty(forked, 0.95); got == domain.UncertaintyHigh {
		t.Error("forked contradiction should not force high")
	}

	// A single source caps the rating at MEDIUM regardless of confidence.
	single := domain.NewCognitiveState()
	single.AddEvidence(evidence("latency", "a", "src-a", 0.9))
	single.AddEvidence(evidence("latency", "b", "src-a", 0.9))
	if got := s.Uncertainty(single, 0.95); got != domain.UncertaintyMedium {
		t.Errorf("single source: got %s, want medium", got)
	}

	// Corroborated, confident, and contradiction-free rates CERTAIN.
	certain := domain.NewCognitiveState()
	certain.AddEvidence(evidence("latency", "a", "src-a", 0.9))
	certain.AddEvidence(evidence("latency", "b", "src-b", 0.9))
	if got := s.Uncertainty(certain, 0.85); got != domain.UncertaintyCertain {
		t.Errorf("corroborated confident state: got %s, want certain", got)
	}

	// Any contradiction on record blocks CERTAIN; LOW still applies.
	if got := s.Uncertainty(forked, 0.85); got != domain.UncertaintyLow {
		t.Errorf("forked contradiction at high confidence: got %s, want low", got)
	}

	if got := s.Uncertainty(certain, 0.6); got != domain.UncertaintyLow {
		t.Errorf("mid confidence: got %s, want low", got)
	}
	if got := s.Uncertainty(certain, 0.3); got != domain.UncertaintyMedium {
		t.Errorf("low confidence: got %s, want medium", got)
	}
}

func TestCompareDetectsOpposedClaims(t *testing.T) {
	s := DefaultScoring()

	prior := evidence("latency", "the cache is the main latency bottleneck", "src-a", 0.6)
	next := evidence("latency", "the cache is not the main latency bottleneck", "src-b", 0.6)

	severity, contradicts := s.Compare(prior, next)
	if !contradicts {
		t.Fatal("opposed claims not flagged as contradiction")
	}
	if severity < 0.4 || severity > 1 {
		t.Errorf("severity %v out of range", severity)
	}
}

func TestCompareSeverityGrowsWithConfidenceGap(t *testing.T) {
	s := DefaultScoring()

	prior := evidence("latency", "the cache is the main latency bottleneck", "src-a", 0.9)
	near := evidence("latency", "the cache is not the main latency bottleneck", "src-b", 0.8)
	far := evidence("latency", "the cache is not the main latency bottleneck", "src-b", 0.1)

	sevNear, _ := s.Compare(prior, near)
	sevFar, _ := s.Compare(prior, far)
	if sevFar <= sevNear {
		t.Errorf("larger confidence gap should raise severity: %v <= %v", sevFar, sevNear)
	}
}

func TestCompareIgnoresNonConflicts(t *testing.T) {
	s := DefaultScoring()

	base := evidence("latency", "the cache is the main latency bottleneck", "src-a", 0.6)

	cases := []struct {
		name string
		next domain.EvidenceItem
	}{
		{"same polarity", evidence("latency", "the cache is indeed the main latency bottleneck", "src-b", 0.6)},
		{"different topic", evidence("throughput", "the cache is not the main latency bottleneck", "src-b", 0.6)},
		{"too few shared words", evidence("latency", "deploys are not flaky", "src-b", 0.6)},
	}
	for _, tc := range cases {
		if _, contradicts := s.Compare(base, tc.next); contradicts {
			t.Errorf("%s: false positive contradiction", tc.name)
		}
	}
}
