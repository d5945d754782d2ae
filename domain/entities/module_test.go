package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportStrategy
		wantErr bool
	}{
		{"", ExportConstructThenUse, false},
		{"construct", ExportConstructThenUse, false},
		{"direct", ExportDirectValue, false},
		{"module", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportStrategy(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseFailureModeAndPolicy(t *testing.T) {
	mode, err := ParseFailureMode("")
	require.NoError(t, err)
	assert.Equal(t, FailAbort, mode)

	mode, err = ParseFailureMode("skip")
	require.NoError(t, err)
	assert.Equal(t, FailSkip, mode)

	_, err = ParseFailureMode("retry")
	assert.Error(t, err)

	policy, err := ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIsolate, policy)

	policy, err = ParseErrorPolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, policy)

	_, err = ParseErrorPolicy("ignore")
	assert.Error(t, err)
}

func TestOwnership(t *testing.T) {
	assert.True(t, Borrowed.Valid())
	assert.True(t, Owned.Valid())
	assert.False(t, Ownership(0).Valid())
	assert.Equal(t, "borrowed", Borrowed.String())
	assert.Equal(t, "owned", Owned.String())
	assert.Equal(t, "ownership(9)", Ownership(9).String())
}

func TestModeValid(t *testing.T) {
	assert.True(t, ExportDirectValue.Valid())
	assert.False(t, ExportStrategy("").Valid())
	assert.True(t, FailSkip.Valid())
	assert.False(t, FailureMode("retry").Valid())
	assert.True(t, PolicyAbort.Valid())
	assert.False(t, ErrorPolicy("").Valid())
}
