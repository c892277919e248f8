package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for child service logs.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where a service's combined stdout/stderr stream is written.
// The supervisor redirects both streams of a child into one rotated file,
// Dir/<service>.log. Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string `json:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Path returns the log file path for the named service.
func (c Config) Path(name string) string {
	return filepath.Join(c.Dir, name+".log")
}

// Writer returns a rotated WriteCloser for the named service's combined output.
// The log directory is created if absent.
func (c Config) Writer(name string) (io.WriteCloser, error) {
	if c.Dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, err
	}
	return &lj.Logger{
		Filename:   c.Path(name),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}, nil
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NewConsole builds the supervisor's own console logger: timestamped,
// level-colored slog output on stderr.
func NewConsole(level slog.Level) *slog.Logger {
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
