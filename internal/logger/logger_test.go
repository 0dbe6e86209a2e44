package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.log")
	Configure(Options{Level: "debug", File: path, MaxSizeMB: 1})
	t.Cleanup(func() { Configure(Options{Level: "info"}) })

	WithField("component", "test").Debug("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
}
