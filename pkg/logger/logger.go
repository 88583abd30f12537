package logger

import (
	"io"
	"log/slog"
	"os"
)

func InitLogger() {
	slog.SetDefault(New(os.Stdout))
}

// New returns a JSON logger that carries request and delivery ids from ctx.
func New(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(&RequestIDHandler{Handler: handler})
}
