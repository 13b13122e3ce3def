package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	now := time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	ms := ToUnixMs(now)
	assert.Equal(t, int64(1673785845123), ms)
	assert.True(t, FromUnixMs(ms).Equal(now))
}

func TestZeroHandling(t *testing.T) {
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))
	assert.True(t, FromUnixMs(0).IsZero())
	assert.Equal(t, "", Format(0))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{"rfc3339 string", "2023-01-15T12:30:45Z", 1673785845000},
		{"unix seconds", int64(1673784645), 1673784645000},
		{"unix milliseconds", int64(1673784645123), 1673784645123},
		{"float milliseconds", float64(1673784645123), 1673784645123},
		{"garbage string", "not-a-time", 0},
		{"unsupported type", struct{}{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2023-01-15T12:30:45Z", Format(1673785845123))
}
