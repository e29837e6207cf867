package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("info", true, &buf)
	require.NoError(t, err)

	log.Debugw("hidden", "k", 1)
	log.Infow("Run complete", "new", 3)
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Run complete", entry["msg"])
	assert.Equal(t, float64(3), entry["new"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("debug", false, &buf)
	require.NoError(t, err)

	log.Debugw("Page fetched", "page", 2)
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "Page fetched")
	assert.Contains(t, buf.String(), `"page": 2`)
}

func TestNewWithWriter_BadLevel(t *testing.T) {
	_, err := NewWithWriter("loud", false, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
