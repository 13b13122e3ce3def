package parcel

import "strings"

// Taxonomy constants for the messaging-service event space.
const (
	// DefinerMatrix identifies the protocol defining the event taxonomy.
	DefinerMatrix = "Matrix"
	// CategoryClientServerAPI is the only category observed on this bridge.
	CategoryClientServerAPI = "ClientServerAPI"
	// TokenVersion is the schema version stamped on every classified token.
	TokenVersion = "1.0.0"
	// DiscriminatorMsgType discriminates message events by content type.
	DiscriminatorMsgType = "msgtype"
)

// EventKind is a raw protocol event type string, e.g. "m.room.create".
type EventKind string

// Event kinds the pipeline subscribes to.
const (
	EventRoomCreate     EventKind = "m.room.create"
	EventRoomMember     EventKind = "m.room.member"
	EventRoomName       EventKind = "m.room.name"
	EventRoomTopic      EventKind = "m.room.topic"
	EventRoomMessage    EventKind = "m.room.message"
	EventRoomRedaction  EventKind = "m.room.redaction"
	EventRoomPowerLevel EventKind = "m.room.power_levels"
	EventPresence       EventKind = "m.presence"
	EventTyping         EventKind = "m.typing"
	EventReceipt        EventKind = "m.receipt"
)

// SubcategoryFor maps an event kind onto the taxonomy's coarse families.
// Room-scoped events are RoomEvents, presence is Presence, the remaining
// per-user signals are UserEvents, and anything unrecognized is General.
func SubcategoryFor(kind EventKind) string {
	s := string(kind)
	switch {
	case strings.HasPrefix(s, "m.room."):
		return SubcategoryRoomEvents
	case kind == EventPresence:
		return SubcategoryPresence
	case kind == EventTyping, kind == EventReceipt:
		return SubcategoryUserEvents
	default:
		return SubcategoryGeneral
	}
}

// Classify builds the Data Parcel Token for an event kind. discriminator is
// the optional sub-kind (the msgtype of a message event); pass "" when the
// event has none. Classify is a pure function: identical inputs always
// produce token-equal results with byte-identical keys, and the returned
// token is always born unvalidated and unnormalized.
func Classify(kind EventKind, discriminator string) Token {
	t := Token{
		Definer:       DefinerMatrix,
		Category:      CategoryClientServerAPI,
		Subcategory:   SubcategoryFor(kind),
		Resource:      string(kind),
		Version:       TokenVersion,
		Validation:    ValidationUnvalidated,
		Normalization: NormalizationUnnormalized,
	}
	if discriminator != "" {
		t.DiscriminatorType = DiscriminatorMsgType
		t.DiscriminatorValue = discriminator
	}
	return t
}
