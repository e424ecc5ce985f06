package domain

import "sort"

// CognitiveState is the knowledge/uncertainty ledger owned by exactly one
// hypothesis at a time. Confidence and uncertainty are derived values written
// only by the interrogation worker's scoring pass; callers cannot set them to
// arbitrary values independent of the evidence on record.
type CognitiveState struct {
	evidenceByTopic map[string][]EvidenceItem
	contradictions  []Contradiction
	confidence      float64
	uncertainty     UncertaintyLevel
	pinned          bool // uncertainty forced (failure ceiling / deadline), scoring no longer overrides it
	queriesIssued   int
	costSpent       float64
	seq             int // next evidence discovery sequence number
}

func NewCognitiveState() *CognitiveState {
	return &CognitiveState{
		evidenceByTopic: make(map[string][]EvidenceItem),
		uncertainty:     UncertaintyUnknown,
	}
}

// AddEvidence appends an item to its topic's sequence in discovery order and
// returns the stored copy with its sequence number stamped.
func (s *CognitiveState) AddEvidence(item EvidenceItem) EvidenceItem {
	item.Seq = s.seq
	s.seq++
	s.evidenceByTopic[item.Topic] = append(s.evidenceByTopic[item.Topic], item)
	return item
}

// AddContradiction records a conflict, stamping the current query count as its
// age basis.
func (s *CognitiveState) AddContradiction(c Contradiction) Contradiction {
	c.Seq = s.queriesIssued
	s.contradictions = append(s.contradictions, c)
	return c
}

// RecordQuery charges one issued query against the budget. Called regardless
// of whether the oracle call succeeded.
func (s *CognitiveState) RecordQuery(cost float64) {
	s.queriesIssued++
	if cost > 0 {
		s.costSpent += cost
	}
}

// SetScores stores the recomputed confidence and uncertainty. A pinned
// uncertainty (see ForceUncertainty) is not overridden.
func (s *CognitiveState) SetScores(confidence float64, uncertainty UncertaintyLevel) {
	s.confidence = clamp01(confidence)
	if !s.pinned {
		s.uncertainty = uncertainty
	}
}

// ForceUncertainty pins the uncertainty level, bypassing derivation. Used by
// the exhaustion paths (consecutive oracle failures, global deadline) which
// mandate HIGH.
func (s *CognitiveState) ForceUncertainty(u UncertaintyLevel) {
	s.uncertainty = u
	s.pinned = true
}

func (s *CognitiveState) Confidence() float64 { return s.confidence }

func (s *CognitiveState) Uncertainty() UncertaintyLevel { return s.uncertainty }

func (s *CognitiveState) QueriesIssued() int { return s.queriesIssued }

func (s *CognitiveState) CostSpent() float64 { return s.costSpent }

// Topics returns all topics with recorded evidence, sorted lexically.
func (s *CognitiveState) Topics() []string {
	topics := make([]string, 0, len(s.evidenceByTopic))
	for t := range s.evidenceByTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Evidence returns the discovery-ordered evidence sequence for a topic.
func (s *CognitiveState) Evidence(topic string) []EvidenceItem {
	items := s.evidenceByTopic[topic]
	out := make([]EvidenceItem, len(items))
	copy(out, items)
	return out
}

// AllEvidence returns every item across topics, ordered by discovery sequence.
func (s *CognitiveState) AllEvidence() []EvidenceItem {
	var all []EvidenceItem
	for _, items := range s.evidenceByTopic {
		all = append(all, items...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	return all
}

func (s *CognitiveState) Contradictions() []Contradiction {
	out := make([]Contradiction, len(s.contradictions))
	copy(out, s.contradictions)
	return out
}

func (s *CognitiveState) TotalEvidence() int {
	n := 0
	for _, items := range s.evidenceByTopic {
		n += len(items)
	}
	return n
}

func (s *CognitiveState) EvidenceCount(topic string) int {
	return len(s.evidenceByTopic[topic])
}

// DistinctSourceCount returns the number of distinct source IDs across all
// evidence.
func (s *CognitiveState) DistinctSourceCount() int {
	sources := make(map[string]struct{})
	for _, items := range s.evidenceByTopic {
		for _, it := range items {
			sources[it.SourceID] = struct{}{}
		}
	}
	return len(sources)
}

// Clone returns a deep, independent copy. Forked hypotheses diverge from a
// clone; mutations on either side are never visible to the other.
func (s *CognitiveState) Clone() *CognitiveState {
	clone := &CognitiveState{
		evidenceByTopic: make(map[string][]EvidenceItem, len(s.evidenceByTopic)),
		contradictions:  make([]Contradiction, len(s.contradictions)),
		confidence:      s.confidence,
		uncertainty:     s.uncertainty,
		pinned:          s.pinned,
		queriesIssued:   s.queriesIssued,
		costSpent:       s.costSpent,
		seq:             s.seq,
	}
	for topic, items := range s.evidenceByTopic {
		copied := make([]EvidenceItem, len(items))
		copy(copied, items)
		clone.evidenceByTopic[topic] = copied
	}
	copy(clone.contradictions, s.contradictions)
	return clone
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
