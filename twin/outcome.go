package twin

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outcome is the result of one behaviour execution. SourceStimulus is
// empty for timer-based outcomes. Many outcomes may share a stimulus
// (fan-out) and many share a behaviour (history).
type Outcome struct {
	ID              string          `json:"id"`
	SourceBehaviour BehaviourID     `json:"source_behaviour,omitempty"`
	SourceStimulus  string          `json:"source_stimulus,omitempty"`
	TwinID          string          `json:"twin_id,omitempty"`
	Content         json.RawMessage `json:"content,omitempty"`
}

// NewOutcome creates an outcome with a fresh identifier. Provenance fields
// may be left unset; the outcome cache backfills them from the enclosing
// outcome set.
func NewOutcome(content json.RawMessage) Outcome {
	return Outcome{
		ID:      uuid.New().String(),
		Content: content,
	}
}

// OutcomeSet is the batch of outcomes produced by one behaviour execution,
// together with the provenance shared by every member. A behaviour may
// emit bare outcomes and rely on the set's declared source fields being
// filled in centrally.
type OutcomeSet struct {
	SourceBehaviour BehaviourID `json:"source_behaviour"`
	SourceStimulus  string      `json:"source_stimulus,omitempty"`
	TwinID          string      `json:"twin_id,omitempty"`
	Outcomes        []Outcome   `json:"outcomes"`
}

// NewOutcomeSet creates an outcome set carrying provenance for its members.
func NewOutcomeSet(behaviour BehaviourID, stimulusID, twinID string) OutcomeSet {
	return OutcomeSet{
		SourceBehaviour: behaviour,
		SourceStimulus:  stimulusID,
		TwinID:          twinID,
	}
}

// Add appends an outcome to the set.
func (s *OutcomeSet) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// IsEmpty reports whether the set carries no outcomes.
func (s OutcomeSet) IsEmpty() bool {
	return len(s.Outcomes) == 0
}
