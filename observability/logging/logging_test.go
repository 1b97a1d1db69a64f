package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions("lessond", "test", Options{Output: &buf})
	logger.Info("lesson completed", "lessonId", 2, "signature", "0xdeadbeef")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "lesson completed", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "lessond", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["signature"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessond.log")
	var buf bytes.Buffer
	logger := SetupWithOptions("lessond", "", Options{Output: &buf, File: path})
	logger.Warn("disk nearly full")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "disk nearly full")
	require.NotContains(t, buf.String(), `"env"`)
}

func TestIsSensitive(t *testing.T) {
	require.True(t, IsSensitive(" Signature "))
	require.False(t, IsSensitive("lessonId"))
}
