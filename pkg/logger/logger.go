// Package logger configures the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much the application logs
type Options struct {
	Level string
	// File enables rotating file output instead of stderr
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
}

// Init configures the standard logrus logger and returns it. The returned
// closer flushes the rotating file, if any.
func Init(opts Options) (*logrus.Logger, io.Closer, error) {
	log := logrus.StandardLogger()

	closer, err := configure(log, opts)
	if err != nil {
		return nil, nil, err
	}

	return log, closer, nil
}

// New builds a standalone logger with the same options as Init
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()

	closer, err := configure(log, opts)
	if err != nil {
		return nil, nil, err
	}

	return log, closer, nil
}

func configure(log *logrus.Logger, opts Options) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	log.SetLevel(level)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 20),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
	}
	log.SetOutput(rotator)

	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
