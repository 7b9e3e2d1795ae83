package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/embermill/rekindle/internal/cliutil"
	"github.com/embermill/rekindle/internal/config"
	"github.com/embermill/rekindle/internal/ipc"
	"github.com/embermill/rekindle/internal/metrics"
	"github.com/embermill/rekindle/internal/procgroup"
	"github.com/embermill/rekindle/internal/spawn"
	"github.com/embermill/rekindle/internal/term"
)

// stopSlack is added to the worker's grace period when bounding a stop, so
// escalation gets a chance to run before the supervisor gives up.
const stopSlack = 5 * time.Second

func newRunCmd(cmdCtx *cmdContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Spawn the configured worker and supervise it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.loadManifest()
			if err != nil {
				return err
			}
			return runWorker(cmd, cfg)
		},
	}
}

func runWorker(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	enc := json.NewEncoder(cmd.OutOrStdout())
	logEvent := func(event cliutil.Event) {
		event.Worker = cfg.Worker.Entry
		cliutil.EncodeLogEvent(enc, cmd.ErrOrStderr(), event)
	}

	// The worker may run interactive sub-programs; make sure a crash cannot
	// leave the supervisor's terminal in raw mode.
	stdinFd := int(os.Stdin.Fd())
	ttyState, err := term.Snapshot(stdinFd)
	if err != nil {
		logEvent(cliutil.Event{Level: "warn", Message: fmt.Sprintf("snapshot terminal: %v", err)})
	}
	defer func() {
		if err := term.Restore(stdinFd, ttyState); err != nil {
			logEvent(cliutil.Event{Level: "warn", Message: fmt.Sprintf("restore terminal: %v", err)})
		}
	}()

	group, err := procgroup.New()
	if err != nil {
		return err
	}
	defer group.Close()

	spawner := spawn.New(
		spawn.WithGroup(group),
		spawn.WithGracePeriod(cfg.Worker.GracePeriod.Std()),
		spawn.WithEnv(cfg.Worker.Environ()),
	)

	worker, conn, err := spawner.SpawnChannel(cfg.Worker.Entry, cfg.Worker.Kwargs)
	if err != nil {
		return err
	}
	defer conn.Close()
	logEvent(cliutil.Event{Pid: worker.Pid(), Message: "worker started"})

	relayDone := make(chan struct{})
	go relayMessages(conn, logEvent, relayDone)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- worker.Wait(stdcontext.Background())
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logEvent(cliutil.Event{Pid: worker.Pid(), Message: "stopping worker"})
		// Give the worker a chance to exit on its own before signaling.
		_, _ = conn.Send(map[string]any{"op": "shutdown"})
		runErr = stopWorker(worker, cfg.Worker.GracePeriod.Std())
	case err := <-waitErr:
		runErr = err
	}

	<-relayDone
	metrics.AddChannelBytes("out", int(conn.BytesSent()))
	metrics.AddChannelBytes("in", int(conn.BytesReceived()))

	if runErr != nil {
		logEvent(cliutil.Event{Pid: worker.Pid(), Level: "error", Message: runErr.Error()})
		return runErr
	}
	logEvent(cliutil.Event{Pid: worker.Pid(), Message: "worker exited"})
	return nil
}

// relayMessages logs every message the worker sends until the channel dies.
func relayMessages(conn *ipc.Conn, logEvent func(cliutil.Event), done chan<- struct{}) {
	defer close(done)
	for {
		v, err := conn.Recv(stdcontext.Background())
		if err != nil {
			if !errors.Is(err, ipc.ErrClosed) && !errors.Is(err, os.ErrClosed) {
				logEvent(cliutil.Event{Level: "error", Source: cliutil.SourceChannel, Message: err.Error()})
			}
			return
		}
		logEvent(cliutil.Event{Source: cliutil.SourceChannel, Message: fmt.Sprintf("%v", v)})
	}
}

// stopWorker escalates through the worker's stop sequence. An exit forced
// by the stop signal is the expected outcome, not a failure.
func stopWorker(worker *spawn.Worker, grace time.Duration) error {
	if grace <= 0 {
		grace = 2 * time.Second
	}
	stopCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), grace+stopSlack)
	defer cancel()

	err := worker.Stop(stopCtx)
	if err == nil {
		return nil
	}
	if worker.ExitCode() != -1 {
		// The worker is down, which is what stopping is for.
		return nil
	}
	return err
}
