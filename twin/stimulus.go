package twin

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// Stimulus is an immutable record that something happened to a specific
// twin, derived from one normalized event. Exactly one stimulus is
// produced per normalized event that maps to a known or creatable twin;
// it is never mutated after creation.
type Stimulus struct {
	ID            string            `json:"id"`
	TwinID        string            `json:"twin_id"`
	UnitOfWorkID  string            `json:"unit_of_work_id"`
	Event         json.RawMessage   `json:"event,omitempty"`
	ResourceEvent json.RawMessage   `json:"resource_event,omitempty"`
	Snapshot      resource.Resource `json:"snapshot,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StimulusOption configures optional stimulus fields at construction.
type StimulusOption func(*Stimulus)

// WithResourceEvent attaches the equivalent clinical-resource event.
func WithResourceEvent(ev json.RawMessage) StimulusOption {
	return func(s *Stimulus) {
		s.ResourceEvent = ev
	}
}

// WithSnapshot attaches a simplified resource snapshot.
func WithSnapshot(snap resource.Resource) StimulusOption {
	return func(s *Stimulus) {
		s.Snapshot = snap
	}
}

// NewStimulus creates a stimulus for a twin from the triggering protocol
// event carried by the identified unit of work.
func NewStimulus(twinID, uowID string, event json.RawMessage, opts ...StimulusOption) Stimulus {
	s := Stimulus{
		ID:           uuid.New().String(),
		TwinID:       twinID,
		UnitOfWorkID: uowID,
		Event:        event,
		CreatedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
