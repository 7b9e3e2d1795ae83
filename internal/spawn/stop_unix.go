//go:build !windows

package spawn

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Stop asks the worker's whole process group to exit, escalating to SIGKILL
// after the grace period.
func (w *Worker) Stop(ctx context.Context) error {
	return w.terminate(ctx, false)
}

// Kill terminates the worker's process group immediately.
func (w *Worker) Kill(ctx context.Context) error {
	return w.terminate(ctx, true)
}

func (w *Worker) terminate(ctx context.Context, force bool) error {
	if w.cmd.Process == nil {
		return nil
	}

	if !force {
		// Attempt a graceful shutdown first.
		if err := syscall.Kill(-w.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("signal worker group %s: %w", w.entry, err)
		}

		select {
		case <-w.waitDone:
			return w.exitError()
		case <-time.After(w.grace):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := syscall.Kill(-w.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill worker group %s: %w", w.entry, err)
	}
	select {
	case <-w.waitDone:
		return w.exitError()
	case <-ctx.Done():
		return ctx.Err()
	}
}
