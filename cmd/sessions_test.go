package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-map/internal/config"
)

func TestPruneSessions_RejectsInProcessStores(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SessionConfig
	}{
		{"memory", config.SessionConfig{Driver: config.DriverMemory}},
		{"sqlite in memory", config.SessionConfig{Driver: config.DriverSQLite, DatabaseURL: "file::memory:?cache=shared"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := pruneSessions(context.Background(), &buf, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "does not persist sessions")
			assert.Empty(t, buf.String())
		})
	}
}

func TestPruneSessions_SQLiteFile(t *testing.T) {
	var buf bytes.Buffer
	err := pruneSessions(context.Background(), &buf, config.SessionConfig{
		Driver:      config.DriverSQLite,
		DatabaseURL: filepath.Join(t.TempDir(), "sessions.db"),
		TTLMins:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deleted 0 expired session(s)\n", buf.String())
}
