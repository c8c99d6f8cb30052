package logger

import (
	"log/slog"
	"os"
)

// New builds the application logger. Production gets JSON output at
// Info; everything else gets text at Debug for readability during
// development.
func New(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
