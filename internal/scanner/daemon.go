package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/arall/sigint/internal/ingest"
)

// Daemon runs every configured scanner in order, then sleeps for the
// interval. Observations land in the local store through the recorder, the
// same path remote stations use over HTTP.
type Daemon struct {
	Scanners []Scanner
	Recorder *ingest.Recorder
	Interval time.Duration
}

const defaultInterval = 15 * time.Minute

// Run loops until the context is cancelled. The first sweep starts
// immediately. A failing scanner never stops the loop.
func (d *Daemon) Run(ctx context.Context) error {
	interval := d.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	for {
		d.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	for _, s := range d.Scanners {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		events, err := s.Run(ctx)
		if err != nil {
			slog.Error("scan failed", "source", s.Source, "error", err, "events", len(events))
		}
		recorded, err := d.Recorder.IngestBatch(ctx, s.TypeID, events)
		if err != nil {
			return
		}
		slog.Info("scan complete",
			"source", s.Source,
			"events", len(events),
			"recorded", recorded,
			"duration", time.Since(start).Round(time.Millisecond))
	}
}
