package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"deskhub/internal/config"

	"github.com/rs/zerolog"
)

// New builds the process-wide base logger. Empty config fields fall back
// to JSON on stdout at info level; file output returns a closer the caller
// owns.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	out, closer, err := sink(cfg)
	if err != nil {
		return nil, nil, err
	}
	if norm(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(out).Level(level(cfg.Level)).With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &logger, closer, nil
}

func level(s string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(norm(s)); err == nil {
		return parsed
	}
	return zerolog.InfoLevel
}

// sink resolves the log destination. Only file output carries a closer.
func sink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch norm(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, errors.New("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
