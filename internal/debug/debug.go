package debug

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
	path   = "/tmp/polychat-debug.log"
)

// SetPath of the debug log. Must be called before the first GetLogger call.
// An empty path discards all logs.
func SetPath(p string) {
	path = p
}

// GetLogger returns a singleton slog logger instance
func GetLogger() *slog.Logger {
	once.Do(func() {
		if path == "" {
			logger = slog.New(slog.DiscardHandler)
			return
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			panic(err)
		}
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	})
	return logger
}
