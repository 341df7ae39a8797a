package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New("portal", "debug", &buf), "session")
	l.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "portal", line["service"])
	assert.Equal(t, "session", line["component"])
	assert.Equal(t, "hello", line["message"])
	assert.Contains(t, line, "timestamp")
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("portal", "chatty", &buf)
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	l.Info().Msg("shown")
	assert.NotEmpty(t, buf.String())
}
