package clnet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLogFileRotates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	lf, err := OpenLogFile(dir)
	require.NoError(t, err)
	_, err = lf.Write([]byte("first run\n"))
	require.NoError(t, err)
	require.NoError(t, lf.Close())

	lf, err = OpenLogFile(dir)
	require.NoError(t, err)
	_, err = lf.Write([]byte("second run\n"))
	require.NoError(t, err)
	require.NoError(t, lf.Close())

	last, err := os.ReadFile(filepath.Join(dir, "last.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(last))

	latest, err := os.ReadFile(filepath.Join(dir, "latest.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second run\n", string(latest))
}

func TestSetLogLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	for level, want := range map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"info":    logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	} {
		SetLogLevel(level)
		assert.Equal(t, want, logrus.GetLevel(), level)
	}
}
