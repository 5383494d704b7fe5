package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info", &config.LoggingConfig{Level: "info"}, false},
		{"debug", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log"), MaxSize: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path, MaxSize: 1})
	require.NoError(t, err)

	l.WithField("query", "xdt_api__v1__feed__reels_media").Info("captured")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"query":"xdt_api__v1__feed__reels_media"`)
	assert.Contains(t, string(data), `"app":"igarchive"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestBoundFields(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf))

	l.WithFields(map[string]interface{}{"target": "@alice", "count": 3}).
		WithError(errors.New("boom")).
		InfoWithFields("done", map[string]interface{}{"kind": "profile"})

	out := buf.String()
	assert.Contains(t, out, `"target":"@alice"`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"kind":"profile"`)
	assert.Contains(t, out, `"message":"done"`)
}

func TestTestLoggerSharesMessages(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("kind", "media").WithError(errors.New("mismatch"))

	child.Warn("integrity")
	tl.Info("plain")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "media", msgs[0].Fields["kind"])
	assert.EqualError(t, msgs[0].Error, "mismatch")
	assert.Nil(t, msgs[1].Error)
	assert.True(t, tl.HasMessage("integ"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestLogAsset(t *testing.T) {
	tl := NewTestLogger()
	LogAsset(tl, "https://cdn/a.jpg", "/out/a.jpg", 42, nil)
	LogAsset(tl, "https://cdn/b.jpg", "", 0, errors.New("404"))

	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)
	warn := tl.GetMessagesByLevel("WARN")
	require.Len(t, warn, 1)
	assert.Equal(t, "https://cdn/b.jpg", warn[0].Fields["url"])
}
