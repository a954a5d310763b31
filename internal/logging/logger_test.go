package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		enabled zap.AtomicLevel
		wantErr bool
	}{
		{name: "json default level", format: "json", enabled: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{name: "console debug", level: "debug", format: "console", enabled: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "upper case format", level: "warn", format: "CONSOLE", enabled: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "bad level", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled.Level()))
			assert.False(t, logger.Core().Enabled(tt.enabled.Level()-1))
		})
	}
}
