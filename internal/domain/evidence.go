package domain

import "time"

// UncertaintyLevel classifies how settled a hypothesis's knowledge is.
// Uncertainty is not an error signal; it drives further interrogation.
type UncertaintyLevel string

const (
	UncertaintyCertain UncertaintyLevel = "certain"
	UncertaintyLow     UncertaintyLevel = "low"
	UncertaintyMedium  UncertaintyLevel = "medium"
	UncertaintyHigh    UncertaintyLevel = "high"
	UncertaintyUnknown UncertaintyLevel = "unknown"
)

// severityRank orders uncertainty levels from most settled to least.
func (u UncertaintyLevel) severityRank() int {
	switch u {
	case UncertaintyCertain:
		return 0
	case UncertaintyLow:
		return 1
	case UncertaintyMedium:
		return 2
	case UncertaintyHigh:
		return 3
	default:
		return 4 // unknown (and anything malformed) is the worst case
	}
}

// Worse reports whether u is a more severe uncertainty level than other.
func (u UncertaintyLevel) Worse(other UncertaintyLevel) bool {
	return u.severityRank() > other.severityRank()
}

func ValidUncertaintyLevel(u string) bool {
	switch UncertaintyLevel(u) {
	case UncertaintyCertain, UncertaintyLow, UncertaintyMedium, UncertaintyHigh, UncertaintyUnknown:
		return true
	}
	return false
}

// EvidenceItem is one observation returned by the source oracle.
// Immutable once created; Seq is stamped when the item is appended to a
// cognitive state and orders items by discovery within that state.
type EvidenceItem struct {
	Content    string    `json:"content"`
	SourceID   string    `json:"source_id"`
	Confidence float64   `json:"confidence"`
	Topic      string    `json:"topic"`
	Timestamp  time.Time `json:"timestamp"`
	Seq        int       `json:"seq"`
}

// Key identifies an evidence item for deduplication across hypotheses.
type EvidenceKey struct {
	SourceID string
	Topic    string
	Content  string
}

func (e EvidenceItem) Key() EvidenceKey {
	return EvidenceKey{SourceID: e.SourceID, Topic: e.Topic, Content: e.Content}
}

// Contradiction is a detected conflict between two evidence items on the same
// topic. Never mutated after creation. Seq records the owning state's query
// count at detection time and is the age basis for the contradiction penalty.
// Forked is true when a fork materialized to isolate the conflicting claim;
// contradictions with Forked=false are the unresolved ones surfaced by the
// synthesizer.
type Contradiction struct {
	Topic    string  `json:"topic"`
	ClaimA   string  `json:"claim_a"`
	ClaimB   string  `json:"claim_b"`
	SourceA  string  `json:"source_a"`
	SourceB  string  `json:"source_b"`
	Severity float64 `json:"severity"`
	Seq      int     `json:"seq"`
	Forked   bool    `json:"forked"`
}
