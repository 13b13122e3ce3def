package twin

import (
	"context"
	"fmt"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
)

// Archetype classifies how a behaviour is triggered.
type Archetype string

// The two behaviour archetypes.
const (
	// ArchetypeStimuliBased behaviours consume stimuli matching their
	// subscription set.
	ArchetypeStimuliBased Archetype = "stimuli-based"
	// ArchetypeTimerBased behaviours run on a schedule, independent of
	// stimuli.
	ArchetypeTimerBased Archetype = "timer-based"
)

// IsValid reports whether a is a known archetype.
func (a Archetype) IsValid() bool {
	return a == ArchetypeStimuliBased || a == ArchetypeTimerBased
}

// BehaviourID identifies a behaviour by twin type, archetype and name.
type BehaviourID string

// NewBehaviourID composes a behaviour identifier.
func NewBehaviourID(twinType Type, archetype Archetype, name string) BehaviourID {
	return BehaviourID(fmt.Sprintf("%s.%s.%s", twinType, archetype, name))
}

// StimulusHandler is a stimuli-based behaviour: it consumes stimuli
// matching its subscription set and produces an outcome set. Handlers
// never propagate faults past their own boundary; a failed execution
// returns an error that the router converts into an empty outcome set.
type StimulusHandler interface {
	ID() BehaviourID
	// Subscriptions declares the data parcel tokens this behaviour accepts.
	Subscriptions() []parcel.Token
	Handle(ctx context.Context, stimulus Stimulus) (OutcomeSet, error)
}

// TimerHandler is a timer-based behaviour: it runs on a fixed period and
// produces outcomes without consuming a stimulus.
type TimerHandler interface {
	ID() BehaviourID
	Tick(ctx context.Context) (OutcomeSet, error)
}
