// Package spawn launches worker processes by re-invoking the current binary
// and handing each worker a one-shot bootstrap packet over an inherited
// pipe. The packet carries an argv snapshot, a dotted entry reference, and
// keyword arguments; the worker side re-enters through Main, resolves the
// reference against the registry, and invokes it.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/embermill/rekindle/internal/ipc"
	"github.com/embermill/rekindle/internal/metrics"
	"github.com/embermill/rekindle/internal/procgroup"
	"github.com/embermill/rekindle/internal/wire"
)

// bootstrapEnv carries the worker's bootstrap pipe handle token across the
// launch boundary.
const bootstrapEnv = "REKINDLE_BOOTSTRAP_HANDLE"

// defaultGracePeriod is how long Stop waits between the polite signal and
// the forced kill.
const defaultGracePeriod = 2 * time.Second

// channelKwarg is the reserved keyword argument SpawnChannel injects.
const channelKwarg = "channel"

// Spawner launches workers. It owns no hidden global state: the tracking
// group, grace period, and extra environment are supplied at construction.
type Spawner struct {
	group *procgroup.Group
	grace time.Duration
	env   []string
}

// Option configures a Spawner.
type Option func(*Spawner)

// WithGroup attaches every spawned worker to the supervisor's tracking
// group so killing the worker implies killing everything it spawned.
func WithGroup(g *procgroup.Group) Option {
	return func(s *Spawner) { s.group = g }
}

// WithGracePeriod sets how long Stop waits for a worker to exit after the
// polite signal before escalating.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Spawner) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithEnv appends environment entries (KEY=VALUE) to every worker.
func WithEnv(env []string) Option {
	return func(s *Spawner) { s.env = append(s.env, env...) }
}

// New constructs a Spawner.
func New(opts ...Option) *Spawner {
	s := &Spawner{grace: defaultGracePeriod}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn launches a worker that invokes the registered entry with kwargs.
//
// Extra files are inherited by the worker in order; extra[i] is reachable
// there via the token ExtraToken(i, extra[i]) reports. Launch failures
// (missing executable, permission denied) propagate to the caller
// unchanged. A failure to attach the worker to the tracking group kills the
// worker and is returned.
func (s *Spawner) Spawn(entry string, kwargs map[string]any, extra ...*os.File) (*Worker, error) {
	if _, _, err := splitRef(entry); err != nil {
		return nil, err
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create bootstrap pipe: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	files := append([]*os.File{r}, extra...)
	tokens, err := configureCommand(cmd, files)
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%d", bootstrapEnv, tokens[0]))

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	r.Close()

	if err := s.deliverPacket(w, entry, kwargs); err != nil {
		reapFailed(cmd)
		return nil, err
	}

	if s.group != nil {
		if err := s.group.Add(cmd.Process.Pid); err != nil {
			reapFailed(cmd)
			return nil, fmt.Errorf("track worker %d: %w", cmd.Process.Pid, err)
		}
	}

	metrics.WorkerSpawned()
	return newWorker(entry, cmd, s.grace), nil
}

// SpawnChannel launches a worker and establishes a duplex message channel
// with it. The worker side of the channel travels in the reserved "channel"
// keyword argument as handle tokens; the entry reconstructs it with
// (*ipc.Handles).Open followed by Activate. The returned connection is
// already activated.
func (s *Spawner) SpawnChannel(entry string, kwargs map[string]any) (*Worker, *ipc.Conn, error) {
	local, remote, err := ipc.Pipe()
	if err != nil {
		return nil, nil, err
	}
	files := remote.Files()

	kw := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		kw[k] = v
	}
	kw[channelKwarg] = &ipc.Handles{
		R:       ExtraToken(0, files[0]),
		W:       ExtraToken(1, files[1]),
		RemoteR: ExtraToken(2, files[2]),
		RemoteW: ExtraToken(3, files[3]),
	}

	worker, err := s.Spawn(entry, kw, files...)
	if err != nil {
		for _, f := range files {
			f.Close()
		}
		return nil, nil, err
	}

	// Activation closes the worker-side ends held locally; the worker now
	// owns its inherited copies.
	if err := local.Activate(); err != nil {
		return nil, nil, err
	}
	return worker, local, nil
}

// deliverPacket writes the bootstrap packet into the worker's pipe and
// closes the write end, so the worker observes a complete one-shot message.
func (s *Spawner) deliverPacket(w *os.File, entry string, kwargs map[string]any) error {
	pkt := Packet{Prep: preparationData(), Entry: entry, Kwargs: kwargs}
	frame, err := wire.Encode(pkt)
	if err == nil {
		_, err = w.Write(frame)
	}
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("deliver bootstrap packet: %w", err)
	}
	return nil
}

func reapFailed(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}
