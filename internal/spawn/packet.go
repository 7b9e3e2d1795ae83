package spawn

import "os"

// Packet is the one-shot bootstrap message written to a freshly launched
// worker: the process state to replay, the entry reference to invoke, and
// its keyword arguments. Created once per spawn, consumed exactly once by
// the worker's entry point.
type Packet struct {
	Prep   Prep           `msgpack:"prep"`
	Entry  string         `msgpack:"entry"`
	Kwargs map[string]any `msgpack:"kwargs"`
}

// Prep is the minimal process-level state a worker replays before invoking
// its entry, so runtime introspection in the worker matches a direct launch.
type Prep struct {
	Argv []string `msgpack:"argv"`
}

func preparationData() Prep {
	return Prep{Argv: append([]string(nil), os.Args...)}
}

func (p Prep) replay() {
	if len(p.Argv) > 0 {
		os.Args = append([]string(nil), p.Argv...)
	}
}
