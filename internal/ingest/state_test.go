package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"768", 768, false},
		{" 384 ", 384, false},
		{"0", 0, false},
		{"-3", -3, false},
		{"abc", 0, true},
		{"", 0, true},
		{"7.5", 0, true},
		{"99999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDimension(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "built", StateBuilt.String())
	assert.Equal(t, "persisting", StatePersisting.String())
	assert.Equal(t, "unknown(42)", State(42).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateFetched.Terminal())
}
