package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/kmmndr/motion_watch/internal/config"
)

func TestPublishersWithoutBrokers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if got := publishers(config.Default(), logger); len(got) != 0 {
		t.Errorf("got %d publishers with no broker configured", len(got))
	}
}
