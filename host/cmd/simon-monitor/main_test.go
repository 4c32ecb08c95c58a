package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugBaud(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"debug_baud": 57600}`), 0o644))

	testCases := []struct {
		name     string
		path     string
		rate     int
		explicit bool
		want     int
	}{
		{"no config", "", 115200, false, 115200},
		{"config rate", path, 115200, false, 57600},
		{"explicit flag wins", path, 9600, true, 9600},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := debugBaud(tc.path, tc.rate, tc.explicit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDebugBaudBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"debug_baud": 0}`), 0o644))

	_, err := debugBaud(path, 115200, false)
	assert.Error(t, err)
}
