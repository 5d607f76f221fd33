package clnet

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// A LogFile appends everything written to it to <dir>/latest.txt.
// The previous run's log is kept as <dir>/last.txt.
type LogFile struct {
	f *os.File
}

// OpenLogFile rotates the old log and opens a new one.
func OpenLogFile(dir string) (*LogFile, error) {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, errors.Wrapf(err, "create log dir %s failed", dir)
	}

	latest := filepath.Join(dir, "latest.txt")
	os.Rename(latest, filepath.Join(dir, "last.txt"))

	f, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
	if err != nil {
		return nil, errors.Wrap(err, "open log file failed")
	}

	return &LogFile{f: f}, nil
}

func (l *LogFile) Write(p []byte) (int, error) { return l.f.Write(p) }

// Close closes the log file.
func (l *LogFile) Close() error { return l.f.Close() }

// SetupLogging configures the standard logrus logger to write to
// stderr and the log file in dir at the given level.
func SetupLogging(dir, level string) (*LogFile, error) {
	SetLogLevel(level)

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}
	logrus.SetFormatter(formatter)

	if dir == "" {
		logrus.SetOutput(os.Stderr)
		return nil, nil
	}

	lf, err := OpenLogFile(dir)
	if err != nil {
		return nil, err
	}

	logrus.SetOutput(io.MultiWriter(os.Stderr, lf))

	return lf, nil
}

// SetLogLevel sets the level of the standard logger.
// Unknown levels fall back to info.
func SetLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
