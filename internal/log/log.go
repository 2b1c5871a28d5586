// Package log provides the process-wide structured logger.
// It wraps logrus with the nested formatter and optional rotating file output.
package log

import (
	"io"
	"os"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is an alias so callers do not import logrus directly.
type Fields = logrus.Fields

// Options configures Init.
type Options struct {
	Level string // debug, info, warn, error
	File  string // rotating log file; empty disables file output
	Quiet bool   // suppress stderr output, used while a TUI owns the terminal
}

// Init configures the global logger. Only the first call has an effect.
func Init(opts Options) {
	once.Do(func() {
		logger = newLogger(opts)
	})
}

func newLogger(opts Options) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        opts.Quiet,
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
	})

	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stderr)
	}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	// No caller reporting: every entry goes through the helpers below, so
	// logrus would name this file as the caller.
	l.SetOutput(io.MultiWriter(writers...))
	return l
}

// L returns the global logger, initialising it at info level on stderr if needed.
func L() *logrus.Logger {
	Init(Options{Level: "info"})
	return logger
}

func Debug(fields Fields, msg string) {
	L().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	L().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	L().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	L().WithFields(fields).Error(msg)
}
