package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/httplog/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vadimbarashkov/shortlink/internal/config"
)

// newLogger builds the service logger. Output goes to stdout and, when
// cfg.Log.File is set, to a size-rotated log file as well.
func newLogger(cfg *config.Config) (*httplog.Logger, func() error, error) {
	const op = "app.newLogger"

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid log level: %w", op, err)
	}

	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxAge:     cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotator)
		closeFn = rotator.Close
	}

	logger := httplog.NewLogger("shortlink", httplog.Options{
		JSON:           cfg.Log.JSON,
		LogLevel:       level,
		Concise:        cfg.Env == config.EnvDev,
		RequestHeaders: cfg.Env != config.EnvProd,
		Tags: map[string]string{
			"env": cfg.Env,
		},
		Writer: w,
	})

	return logger, closeFn, nil
}
