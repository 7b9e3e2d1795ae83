package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/embermill/rekindle/internal/ipc"
	"github.com/embermill/rekindle/internal/spawn"
)

// RegisterEntries wires the built-in demo entries into the spawn registry.
// It must run before spawn.Main so a spawned copy of the binary can resolve
// them.
func RegisterEntries() {
	spawn.Register("demo.echo", echoEntry)
	spawn.Register("demo.dump", dumpEntry)
}

// echoEntry keeps a channel conversation going: every message from the
// supervisor is echoed back until the supervisor disconnects or sends a
// shutdown op.
func echoEntry(kwargs map[string]any) error {
	handles, ok := kwargs["channel"].(*ipc.Handles)
	if !ok {
		return errors.New("demo.echo requires a channel")
	}
	conn := handles.Open()
	if err := conn.Activate(); err != nil {
		return err
	}
	defer conn.Close()

	for {
		v, err := conn.Recv(stdcontext.Background())
		if errors.Is(err, ipc.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if m, ok := v.(map[string]any); ok && m["op"] == "shutdown" {
			return nil
		}
		if _, err := conn.Send(v); err != nil {
			return err
		}
	}
}

// dumpEntry prints the received keyword arguments in a stable order and
// exits.
func dumpEntry(kwargs map[string]any) error {
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		if k == "channel" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "%s=%v\n", k, kwargs[k])
	}
	return nil
}
