package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation configuration for per-execution output logs.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// New returns a slog logger writing colorized text to stderr. When verbose
// is true the level drops to Debug, which is what the store's per-operation
// trace logging is gated on.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}, false)
	return slog.New(h)
}

// Config describes where captured command output goes. If Path is empty,
// output files are Dir/<uuid>.log. Rotation parameters follow lumberjack
// semantics.
type Config struct {
	Dir        string // base directory for execution logs
	Path       string // explicit path overrides Dir
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // gzip rotated files
}

// Writer returns an io.WriteCloser capturing the combined output of the
// execution identified by uuid, along with the path it writes to.
func (c Config) Writer(uuid string) (io.WriteCloser, string, error) {
	path := c.Path
	if path == "" {
		if c.Dir == "" {
			return nil, "", fmt.Errorf("logger: no log directory configured")
		}
		path = filepath.Join(c.Dir, fmt.Sprintf("%s.log", uuid))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, "", err
	}
	w := &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return w, path, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
