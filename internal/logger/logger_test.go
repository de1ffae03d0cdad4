package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	require.NoError(t, err)

	log.Info().Msg("quiet")
	log.Warn().Str("file", "a.sta").Msg("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "a.sta")
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.Info().Int("records", 2).Msg("parsed")

	assert.Contains(t, buf.String(), `"message":"parsed"`)
	assert.Contains(t, buf.String(), `"records":2`)
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	log, err := FromConfig("warn", "json", &buf)
	require.NoError(t, err)
	log.Info().Msg("quiet")
	log.Warn().Msg("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	log, err = FromConfig("info", "", &buf)
	require.NoError(t, err)
	log.Info().Msg("console")
	assert.NotContains(t, buf.String(), `"message"`)
	assert.Contains(t, buf.String(), "console")

	_, err = FromConfig("info", "xml", &buf)
	assert.Error(t, err)
	_, err = FromConfig("loud", "json", &buf)
	assert.Error(t, err)
}
