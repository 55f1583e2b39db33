// Package logging sets up the global zerolog logger for the notegen binaries.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects where diagnostics go. Without File they are written to
// stderr in console format; with File they are written as JSON lines to a
// size-rotated file.
type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// DefaultConfig logs at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSize:    1,
		MaxBackups: 4,
	}
}

// Console points the global logger at stderr in console format. The
// binaries call it before their configuration is loaded.
func Console() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.999Z07:00"})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup replaces the global logger according to cfg. The returned closer
// releases the log file, if any.
func Setup(cfg Config) (io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	if cfg.File == "" {
		Console()
		return nopCloser{}, nil
	}

	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return w, nil
}
