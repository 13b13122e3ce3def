package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/envelope"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
)

func TestIngestClassifiesRoomEvent(t *testing.T) {
	i := New()

	uow := i.Ingest([]byte(`{"type":"m.room.create","room_id":"!abc:server"}`))
	require.NotNil(t, uow)

	token := uow.Ingress().Token
	assert.Equal(t, parcel.SubcategoryRoomEvents, token.Subcategory)
	assert.Equal(t, "m.room.create", token.Resource)
	assert.Empty(t, token.DiscriminatorType)
	assert.Equal(t, envelope.OutcomePending, uow.Outcome())
}

func TestIngestMessageDiscriminator(t *testing.T) {
	i := New()

	uow := i.Ingest([]byte(`{"type":"m.room.message","content":{"msgtype":"m.text","body":"hi"}}`))
	token := uow.Ingress().Token
	assert.Equal(t, parcel.DiscriminatorMsgType, token.DiscriminatorType)
	assert.Equal(t, "m.text", token.DiscriminatorValue)

	// Non-message events never pick up a discriminator, even if their
	// content happens to carry a msgtype-shaped field.
	uow = i.Ingest([]byte(`{"type":"m.room.topic","content":{"msgtype":"m.text"}}`))
	assert.Empty(t, uow.Ingress().Token.DiscriminatorType)
}

func TestIngestUnparseableEvent(t *testing.T) {
	i := New()

	uow := i.Ingest([]byte(`{{{not json`))
	require.NotNil(t, uow, "bad input still yields an observable unit of work")
	assert.Equal(t, envelope.OutcomeFailed, uow.Outcome())
	assert.NotEmpty(t, uow.FailureDescription())
}

func TestIngestMissingType(t *testing.T) {
	i := New()

	uow := i.Ingest([]byte(`{"room_id":"!abc:server"}`))
	assert.Equal(t, envelope.OutcomeFailed, uow.Outcome())
	assert.Contains(t, uow.FailureDescription(), "no type")
}

func TestIngestUnrecognizedKind(t *testing.T) {
	i := New()

	uow := i.Ingest([]byte(`{"type":"org.custom.event"}`))
	assert.Equal(t, envelope.OutcomePending, uow.Outcome())
	assert.Equal(t, parcel.SubcategoryGeneral, uow.Ingress().Token.Subcategory)
}

func TestSubscriptionDeclaration(t *testing.T) {
	tokens := Subscriptions()
	assert.Len(t, tokens, 10)

	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.True(t, tok.IsValid())
		assert.False(t, seen[tok.Key()], "duplicate subscription %s", tok.Key())
		seen[tok.Key()] = true
	}

	subjects := Subjects()
	require.Len(t, subjects, len(tokens))
	for _, s := range subjects {
		assert.NotContains(t, s, "*")
		assert.NotContains(t, s, ">")
	}
}
