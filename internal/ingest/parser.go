package ingest

import (
	"log/slog"
	"strings"

	"github.com/arall/sigint/internal/metrics"
)

// Parse extracts scan events from raw scanner output. One JSON object per
// line; diagnostic chatter, blank lines and malformed objects are dropped
// with a warning, never aborting the batch. Source labels the scanner for
// logging and metrics.
func Parse(source string, output []byte) []ScanEvent {
	lines := strings.FieldsFunc(string(output), func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	var events []ScanEvent
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Scanners interleave progress output with the JSON records.
		if !strings.HasPrefix(line, "{") {
			metrics.EventsSkipped.WithLabelValues(source).Inc()
			continue
		}
		// Python-style dict reprs come with single quotes.
		if !strings.Contains(line, `"`) {
			line = strings.ReplaceAll(line, "'", `"`)
		}
		ev, err := DecodeEvent([]byte(line))
		if err != nil {
			slog.Warn("skipping scanner line", "source", source, "error", err)
			metrics.EventsSkipped.WithLabelValues(source).Inc()
			continue
		}
		metrics.EventsParsed.WithLabelValues(source).Inc()
		events = append(events, ev)
	}
	return events
}
