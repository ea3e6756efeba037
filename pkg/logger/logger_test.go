package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWithLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		giveLvl string
		wantErr string
	}{
		{name: "default level", giveLvl: ""},
		{name: "debug level", giveLvl: "debug"},
		{name: "invalid level", giveLvl: "loud", wantErr: `parse log level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, err := NewWithLevel(tt.giveLvl)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, lggr)
		})
	}
}

func TestNamed(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.DebugLevel)
	child := lggr.Named("decoder").Named("extract")

	assert.Equal(t, "decoder.extract", child.Name())

	child.Debugw("replaying transaction", "hash", "0x01")

	entries := logs.FilterMessage("replaying transaction").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "decoder.extract", entries[0].LoggerName)
	assert.Equal(t, "0x01", entries[0].ContextMap()["hash"])
}

func TestNop(t *testing.T) {
	t.Parallel()

	lggr := Nop()
	lggr.Errorw("ignored", "k", "v")
	assert.Empty(t, lggr.Name())
}
