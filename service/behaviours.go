package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// membershipBehaviour is the default stimuli-based pipeline installed
// for every twin type. It keeps the twin's room membership in step with
// the chat side and emits one outcome per handled stimulus.
type membershipBehaviour struct {
	id       twin.BehaviourID
	twinType twin.Type
	twins    *twin.Registry
	logger   *slog.Logger
}

func newMembershipBehaviour(twinType twin.Type, twins *twin.Registry, logger *slog.Logger) *membershipBehaviour {
	return &membershipBehaviour{
		id:       twin.NewBehaviourID(twinType, twin.ArchetypeStimuliBased, "membership"),
		twinType: twinType,
		twins:    twins,
		logger:   logger.With("behaviour", "membership", "twin_type", twinType),
	}
}

func (b *membershipBehaviour) ID() twin.BehaviourID {
	return b.id
}

func (b *membershipBehaviour) Subscriptions() []parcel.Token {
	kinds := []parcel.EventKind{
		parcel.EventRoomCreate,
		parcel.EventRoomMember,
		parcel.EventRoomName,
		parcel.EventRoomTopic,
		parcel.EventRoomMessage,
		parcel.EventPresence,
	}
	tokens := make([]parcel.Token, 0, len(kinds))
	for _, k := range kinds {
		tokens = append(tokens, parcel.Classify(k, ""))
	}
	return tokens
}

// membershipEvent is the slice of a room event this behaviour acts on.
type membershipEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Sender  string `json:"sender"`
	Content struct {
		Membership string `json:"membership"`
	} `json:"content"`
}

func (b *membershipBehaviour) Handle(_ context.Context, stim twin.Stimulus) (twin.OutcomeSet, error) {
	set := twin.NewOutcomeSet(b.id, stim.ID, stim.TwinID)

	tw, created, err := b.twins.GetOrCreate(stim.TwinID, b.twinType, stim.Snapshot.Reference)
	if err != nil {
		return set, err
	}
	if created {
		b.logger.Info("twin created", "twin_id", stim.TwinID)
	}
	if tw.State() == twin.StateRetired {
		b.logger.Debug("stimulus for retired twin ignored", "twin_id", stim.TwinID)
		return set, nil
	}

	var ev membershipEvent
	if err := json.Unmarshal(stim.Event, &ev); err != nil {
		// The event reached a behaviour, so it already normalized; an
		// unreadable payload here only means there is nothing to act on.
		return set, nil
	}

	action := "activity"
	if parcel.EventKind(ev.Type) == parcel.EventRoomMember && ev.RoomID != "" {
		switch ev.Content.Membership {
		case "join", "invite":
			if tw.AddRoom(ev.RoomID) {
				action = "room-joined"
			}
		case "leave", "ban":
			if tw.RemoveRoom(ev.RoomID) {
				action = "room-left"
			}
		}
	}

	content, err := json.Marshal(map[string]any{
		"action":     action,
		"twin_id":    stim.TwinID,
		"room_id":    ev.RoomID,
		"event_type": ev.Type,
		"room_count": len(tw.Rooms()),
	})
	if err != nil {
		return set, err
	}
	set.Add(twin.NewOutcome(content))
	return set, nil
}

// reconcileBehaviour is the timer-based pipeline for practitioner role
// twins: on every tick it emits a membership summary for each active
// role twin, giving downstream consumers a periodic ground truth even
// when no stimuli arrive.
type reconcileBehaviour struct {
	id     twin.BehaviourID
	twins  *twin.Registry
	logger *slog.Logger
}

func newReconcileBehaviour(twins *twin.Registry, logger *slog.Logger) *reconcileBehaviour {
	return &reconcileBehaviour{
		id:     twin.NewBehaviourID(twin.TypePractitionerRole, twin.ArchetypeTimerBased, "reconcile"),
		twins:  twins,
		logger: logger.With("behaviour", "reconcile"),
	}
}

func (b *reconcileBehaviour) ID() twin.BehaviourID {
	return b.id
}

func (b *reconcileBehaviour) Tick(_ context.Context) (twin.OutcomeSet, error) {
	set := twin.NewOutcomeSet(b.id, "", "")

	for _, tw := range b.twins.OfType(twin.TypePractitionerRole) {
		if tw.State() != twin.StateActive {
			continue
		}
		content, err := json.Marshal(map[string]any{
			"action":     "reconcile",
			"twin_id":    tw.ID(),
			"rooms":      tw.Rooms(),
			"room_count": len(tw.Rooms()),
		})
		if err != nil {
			return set, fmt.Errorf("reconcile summary for %s: %w", tw.ID(), err)
		}
		o := twin.NewOutcome(content)
		o.TwinID = tw.ID()
		set.Add(o)
	}

	if !set.IsEmpty() {
		b.logger.Debug("reconcile tick complete", "outcomes", len(set.Outcomes))
	}
	return set, nil
}
