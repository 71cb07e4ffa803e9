// Package scanner runs the local radio survey subprocesses and feeds their
// output through the ingestion pipeline.
package scanner

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/arall/sigint/internal/ingest"
)

// Scanner describes one survey subprocess. Command is an argument vector,
// executed directly without a shell; the timeout bounds a single run.
type Scanner struct {
	Source  string
	TypeID  uint
	Command []string
	Timeout time.Duration
}

const defaultTimeout = 60 * time.Second

// Run executes the subprocess once and parses its output. A timed-out or
// failed run still yields whatever events made it to stdout before the
// failure, alongside the error.
func (s Scanner) Run(ctx context.Context) ([]ingest.ScanEvent, error) {
	if len(s.Command) == 0 {
		return nil, errors.New("scanner has no command")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	output, err := cmd.CombinedOutput()
	events := ingest.Parse(s.Source, output)
	if err != nil {
		return events, err
	}
	return events, nil
}
