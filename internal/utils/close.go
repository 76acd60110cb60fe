package utils

import (
	"io"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// Close closes c and ignores the error. For best-effort defers.
func Close(c io.Closer) {
	_ = c.Close()
}

// MustClose closes c and logs a failure under what.
func MustClose(c io.Closer, log logger.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", what), logger.Error(err))
	}
}
