package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("challenged", "test", Options{Level: slog.LevelDebug, Output: &buf})
	logger.Debug("applied", slog.String("type", "vote"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "applied", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "challenged", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("challenged", "", Options{Level: ParseLevel("warn"), Output: &buf})
	logger.Info("dropped")
	require.Zero(t, buf.Len())
}

func TestSetupRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("challenged", "", Options{Output: &buf})
	logger.Info("telemetry configured",
		slog.String("OTLP-Headers", "authorization=Bearer abc"),
		slog.String("passphrase", "hunter2"),
		slog.String("endpoint", "localhost:4318"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, RedactedValue, line["OTLP-Headers"])
	require.Equal(t, RedactedValue, line["passphrase"])
	require.Equal(t, "localhost:4318", line["endpoint"])
	require.NotContains(t, buf.String(), "hunter2")
}

func TestSecretAndLevels(t *testing.T) {
	require.Equal(t, RedactedValue, Secret("anything", "hunter2").Value.String())
	require.Equal(t, "", Secret("passphrase", "").Value.String())
	require.True(t, IsSensitive("Private-Key"))
	require.False(t, IsSensitive("type"))
	require.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
