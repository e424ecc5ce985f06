package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceInterval is the reported spread of survivor confidences, not a
// statistical interval.
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Alternative is an eliminated-but-notable hypothesis surfaced for
// transparency, with the claim that distinguished it.
type Alternative struct {
	HypothesisID      uuid.UUID `json:"hypothesis_id"`
	Claim             string    `json:"claim"`
	Confidence        float64   `json:"confidence"`
	EliminationReason string    `json:"elimination_reason,omitempty"`
}

// SynthesizedState is the final merged decision state handed to the text
// synthesizer. Created once per top-level query; immutable after construction.
type SynthesizedState struct {
	DecisionEvidence         []EvidenceItem     `json:"decision_evidence"`
	Confidence               float64            `json:"confidence"`
	ConfidenceInterval       ConfidenceInterval `json:"confidence_interval"`
	Uncertainty              UncertaintyLevel   `json:"uncertainty"`
	Alternatives             []Alternative      `json:"alternatives"`
	UnresolvedContradictions []Contradiction    `json:"unresolved_contradictions"`
	SurvivorIDs              []uuid.UUID        `json:"survivor_ids"`
	EliminatedIDs            []uuid.UUID        `json:"eliminated_ids"`
	CreatedAt                time.Time          `json:"created_at"`
}
