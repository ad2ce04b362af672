package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	log, closer, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	defer closer.Close()
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	_, _, err = New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "solramp.log")

	log, closer, err := New(Options{Level: "info", File: path, JSON: true})
	require.NoError(t, err)

	log.WithField("component", "test").Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"component":"test"`)
	require.Contains(t, string(data), `"msg":"hello"`)
}
