package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(env string) {
	slog.SetDefault(slog.New(newStdoutHandler(os.Stdout, env)))
}

// SetupWithDB replaces the global logger with one that also persists ERROR+
// records through h.
func SetupWithDB(env string, h *DBHandler) {
	slog.SetDefault(slog.New(NewMultiHandler(newStdoutHandler(os.Stdout, env), h)))
}

func newStdoutHandler(w io.Writer, env string) slog.Handler {
	level := slog.LevelInfo
	if strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
