package natsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyEncodingRoundTrip(t *testing.T) {
	// Chat protocol identifiers carry characters JetStream keys reject.
	keys := []string{
		"room.!abc:server.example.org",
		"user.@alice:server",
		"user.@weird one#here",
		"room.",
	}

	for _, key := range keys {
		encoded := encodeKey(key)
		assert.NotContains(t, encoded, "!")
		assert.NotContains(t, encoded, "@")
		assert.NotContains(t, encoded, ":")
		assert.NotContains(t, encoded, " ")

		decoded, err := decodeKey(encoded)
		require.NoError(t, err)
		assert.Equal(t, key, decoded)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeKey("not base64 at all!!!")
	assert.Error(t, err)
}

func TestNewRequiresURLs(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	c, err := New([]string{"nats://localhost:4222"})
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close(), "closing a never-connected client is a no-op")
}
