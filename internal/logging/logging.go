package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much a component logs.
type Options struct {
	Component  string
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	// Console receives a copy of every line. Defaults to stderr; stdout is
	// reserved for the stdio transport.
	Console io.Writer
}

// New creates a logger that writes to the console and to a rotating
// <dir>/<component>.log, and returns it with a cleanup.
func New(opts Options) (*logrus.Entry, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Console logging still works without the file sink.
		logger.SetOutput(console)
		entry := logger.WithField("component", opts.Component)
		entry.Warnf("file logging disabled: %v", err)
		return entry, func() {}, nil
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, opts.Component+".log"),
		MaxSize:    positiveOr(opts.MaxSizeMB, 10),
		MaxBackups: positiveOr(opts.MaxBackups, 5),
	}

	logger.SetOutput(io.MultiWriter(console, file))
	return logger.WithField("component", opts.Component), func() { _ = file.Close() }, nil
}

// ParseLevel maps the configured level names onto logrus levels.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "", "INFO":
		return logrus.InfoLevel, nil
	case "WARNING", "WARN":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	case "CRITICAL":
		return logrus.FatalLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
