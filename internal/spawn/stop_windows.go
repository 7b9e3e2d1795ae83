//go:build windows

package spawn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stop interrupts the worker and, after the grace period, kills it. Whole
// tree teardown on Windows is the tracking group's job: descendants die
// when the job handle closes, not from this signal.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cmd.Process == nil {
		return nil
	}
	// Attempt a graceful shutdown first.
	_ = w.cmd.Process.Signal(os.Interrupt)

	select {
	case <-w.waitDone:
		return w.exitError()
	case <-time.After(w.grace):
	case <-ctx.Done():
		return ctx.Err()
	}

	return w.Kill(ctx)
}

// Kill terminates the worker process immediately.
func (w *Worker) Kill(ctx context.Context) error {
	if w.cmd.Process == nil {
		return nil
	}
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker %s: %w", w.entry, err)
	}
	select {
	case <-w.waitDone:
		return w.exitError()
	case <-ctx.Done():
		return ctx.Err()
	}
}
