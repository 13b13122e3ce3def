package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantInvalid   bool
		wantFatal     bool
	}{
		{
			name:          "directory lookup is transient",
			err:           ErrDirectoryLookup,
			wantTransient: true,
		},
		{
			name:          "lookup timeout is transient",
			err:           ErrLookupTimeout,
			wantTransient: true,
		},
		{
			name:          "deadline exceeded is transient",
			err:           context.DeadlineExceeded,
			wantTransient: true,
		},
		{
			name:        "correlation extraction is invalid",
			err:         ErrCorrelationExtraction,
			wantInvalid: true,
		},
		{
			name:        "parsing failure is invalid",
			err:         ErrParsingFailed,
			wantInvalid: true,
		},
		{
			name:      "routing configuration is fatal",
			err:       ErrRoutingConfiguration,
			wantFatal: true,
		},
		{
			name:      "missing config is fatal",
			err:       ErrMissingConfig,
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, IsTransient(tt.err))
			assert.Equal(t, tt.wantInvalid, IsInvalid(tt.err))
			assert.Equal(t, tt.wantFatal, IsFatal(tt.err))
		})
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := WrapTransient(ErrDirectoryLookup, "RoomNormalizer", "Normalize", "fetch room detail")
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, ErrDirectoryLookup))
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "RoomNormalizer.Normalize: fetch room detail failed")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestClassifiedErrorOverridesSentinel(t *testing.T) {
	// An invalid wrap around a transient sentinel classifies as invalid.
	err := WrapInvalid(ErrDirectoryLookup, "c", "m", "a")
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
}

func TestClassifyDefaultsToTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(fmt.Errorf("something unexpected")))
	assert.Equal(t, ErrorFatal, Classify(WrapFatal(ErrRoutingConfiguration, "c", "m", "a")))
	assert.Equal(t, ErrorInvalid, Classify(ErrCorrelationExtraction))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}
