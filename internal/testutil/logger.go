package testutil

import (
	"io"
	"log/slog"
)

// QuietLogger returns a logger that discards everything. Tests that assert on
// behavior rather than log output use this to keep test runs readable.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
