package domain

import "github.com/google/uuid"

type HypothesisStatus string

const (
	StatusActive     HypothesisStatus = "active"
	StatusConverged  HypothesisStatus = "converged"
	StatusExhausted  HypothesisStatus = "exhausted"
	StatusEliminated HypothesisStatus = "eliminated"
)

func ValidHypothesisStatus(s string) bool {
	switch HypothesisStatus(s) {
	case StatusActive, StatusConverged, StatusExhausted, StatusEliminated:
		return true
	}
	return false
}

// Terminal reports whether the status ends interrogation for the hypothesis.
func (s HypothesisStatus) Terminal() bool {
	return s == StatusConverged || s == StatusExhausted || s == StatusEliminated
}

// Hypothesis is one candidate line of investigation. Assumptions and Topics
// are supplied by the upstream query planner; Strategy is its hint for how
// queries should be phrased. The state is exclusively owned: no other
// hypothesis or worker ever holds a mutable reference to it.
type Hypothesis struct {
	ID                uuid.UUID
	Assumptions       []string
	Topics            []string
	Strategy          string
	State             *CognitiveState
	Status            HypothesisStatus
	ParentID          *uuid.UUID
	ForkDepth         int
	EliminationReason string
}

// NewHypothesis creates an ACTIVE hypothesis with an empty cognitive state.
func NewHypothesis(assumptions, topics []string, strategy string) *Hypothesis {
	return &Hypothesis{
		ID:          uuid.New(),
		Assumptions: append([]string(nil), assumptions...),
		Topics:      append([]string(nil), topics...),
		Strategy:    strategy,
		State:       NewCognitiveState(),
		Status:      StatusActive,
	}
}

// Fork creates a child hypothesis from a pre-divergence snapshot of the
// parent's state. The snapshot must already be an independent deep copy; Fork
// never aliases the parent's state. The child inherits the parent's budget
// counters through the snapshot, so total system cost stays bounded no matter
// how many forks occur.
func (h *Hypothesis) Fork(snapshot *CognitiveState) *Hypothesis {
	parentID := h.ID
	return &Hypothesis{
		ID:          uuid.New(),
		Assumptions: append([]string(nil), h.Assumptions...),
		Topics:      append([]string(nil), h.Topics...),
		Strategy:    h.Strategy,
		State:       snapshot,
		Status:      StatusActive,
		ParentID:    &parentID,
		ForkDepth:   h.ForkDepth + 1,
	}
}

// EvidenceCount returns the total evidence across all topics.
func (h *Hypothesis) EvidenceCount() int {
	if h.State == nil {
		return 0
	}
	return h.State.TotalEvidence()
}
