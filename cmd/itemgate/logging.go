package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sagarc03/itemgate/config"
)

// setupLogging installs the process-wide slog logger and routes the standard
// log package through it.
func setupLogging(cfg config.LogConfig) {
	slog.SetDefault(slog.New(newLogHandler(cfg, os.Stdout, os.Stderr)))

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo).Writer())
}

// newLogHandler returns JSON lines on stdout in production and colored text
// on stderr otherwise.
func newLogHandler(cfg config.LogConfig, stdout, stderr io.Writer) slog.Handler {
	level := parseLevel(cfg.Level)

	if cfg.IsProduction() {
		return slog.NewJSONHandler(stdout, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	}

	return tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		AddSource:  level == slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
