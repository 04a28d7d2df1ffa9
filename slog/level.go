package slog

import (
	"context"
	"errors"
	"log/slog"
)

// levelFor raises failed calls to warn so they stand out in a verbose
// crawl log. Cancellation is the user stopping the run, not a failure.
func levelFor(err error) slog.Level {
	if err != nil && !errors.Is(err, context.Canceled) {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
