package apikey

import (
	"io"
	"log/slog"
)

// NewLogger cria um logger JSON. Com debug o nível vai para Debug, senão Info.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
