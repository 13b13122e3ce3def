package parcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIsDeterministic(t *testing.T) {
	kinds := []EventKind{
		EventRoomCreate, EventRoomMember, EventRoomName, EventRoomMessage,
		EventPresence, EventTyping, EventReceipt, EventKind("m.unknown.thing"),
	}
	discriminators := []string{"", "m.text", "m.image"}

	for _, kind := range kinds {
		for _, disc := range discriminators {
			a := Classify(kind, disc)
			b := Classify(kind, disc)
			assert.True(t, a.Equal(b), "classify(%s, %q) not stable", kind, disc)
			assert.Equal(t, a.Key(), b.Key(), "key for (%s, %q) not byte-identical", kind, disc)
		}
	}
}

func TestClassifySubcategories(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventRoomCreate, SubcategoryRoomEvents},
		{EventRoomMember, SubcategoryRoomEvents},
		{EventRoomMessage, SubcategoryRoomEvents},
		{EventPresence, SubcategoryPresence},
		{EventTyping, SubcategoryUserEvents},
		{EventReceipt, SubcategoryUserEvents},
		{EventKind("m.fully.custom"), SubcategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.kind, "").Subcategory)
		})
	}
}

func TestClassifyBornUnprocessed(t *testing.T) {
	tok := Classify(EventRoomCreate, "")
	assert.Equal(t, ValidationUnvalidated, tok.Validation)
	assert.Equal(t, NormalizationUnnormalized, tok.Normalization)
}

func TestTokenEqualityIgnoresStatus(t *testing.T) {
	a := Classify(EventRoomMessage, "m.text")
	b := a.WithNormalized().WithValidated()

	assert.True(t, a.Equal(b), "status fields must not participate in equality")
	assert.NotEqual(t, a.Normalization, b.Normalization)
}

func TestTokenEqualityDiscriminates(t *testing.T) {
	base := Classify(EventRoomMessage, "m.text")

	assert.False(t, base.Equal(Classify(EventRoomMessage, "m.image")))
	assert.False(t, base.Equal(Classify(EventRoomMessage, "")))
	assert.False(t, base.Equal(Classify(EventRoomName, "m.text")))
}

func TestWithNormalizedLeavesOriginalIntact(t *testing.T) {
	orig := Classify(EventRoomCreate, "")
	normalized := orig.WithNormalized()

	assert.Equal(t, NormalizationUnnormalized, orig.Normalization)
	assert.Equal(t, NormalizationNormalized, normalized.Normalization)
	assert.True(t, orig.Equal(normalized))
}

func TestTokenKeyShape(t *testing.T) {
	plain := Classify(EventRoomCreate, "")
	assert.Equal(t, "Matrix.ClientServerAPI.RoomEvents.m.room.create.1.0.0", plain.Key())

	discriminated := Classify(EventRoomMessage, "m.text")
	assert.Equal(t, "Matrix.ClientServerAPI.RoomEvents.m.room.message.msgtype.m.text.1.0.0", discriminated.Key())
}

func TestTokenSubjectSanitized(t *testing.T) {
	tok := Classify(EventRoomMessage, "m.text")
	subject := tok.Subject()

	assert.Equal(t, "matrix.clientserverapi.roomevents.m-room-message.msgtype.m-text.1-0-0", subject)
}

func TestTokenIsValid(t *testing.T) {
	assert.True(t, Classify(EventRoomCreate, "").IsValid())

	missing := Token{Definer: DefinerMatrix, Category: CategoryClientServerAPI}
	assert.False(t, missing.IsValid())

	orphanDiscriminator := Classify(EventRoomMessage, "")
	orphanDiscriminator.DiscriminatorValue = "m.text"
	assert.False(t, orphanDiscriminator.IsValid())
}
