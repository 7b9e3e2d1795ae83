package spawn

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/embermill/rekindle/internal/metrics"
)

// Worker is a handle to a launched worker process.
type Worker struct {
	entry string
	cmd   *exec.Cmd
	grace time.Duration

	waitDone chan struct{}
	waitErr  error
}

func newWorker(entry string, cmd *exec.Cmd, grace time.Duration) *Worker {
	w := &Worker{
		entry:    entry,
		cmd:      cmd,
		grace:    grace,
		waitDone: make(chan struct{}),
	}
	go func() {
		w.waitErr = cmd.Wait()
		outcome := "ok"
		if w.waitErr != nil {
			outcome = "error"
		}
		metrics.WorkerExited(outcome)
		close(w.waitDone)
	}()
	return w
}

// Entry returns the dotted reference the worker was launched with.
func (w *Worker) Entry() string {
	return w.entry
}

// Pid returns the worker's process id.
func (w *Worker) Pid() int {
	if w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// Wait blocks until the worker exits or the context is done. A non-zero
// exit is returned as an error.
func (w *Worker) Wait(ctx context.Context) error {
	select {
	case <-w.waitDone:
		return w.exitError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode reports the worker's exit status, or -1 if it has not exited.
func (w *Worker) ExitCode() int {
	select {
	case <-w.waitDone:
	default:
		return -1
	}
	if w.cmd.ProcessState == nil {
		return -1
	}
	return w.cmd.ProcessState.ExitCode()
}

func (w *Worker) exitError() error {
	if w.waitErr != nil {
		return fmt.Errorf("worker %s exited: %w", w.entry, w.waitErr)
	}
	return nil
}
