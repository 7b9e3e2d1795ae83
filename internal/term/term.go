// Package term snapshots and restores terminal line-discipline state around
// worker runs. A worker that crashes mid-operation can leave the controlling
// terminal in raw or no-echo mode; bracketing its lifetime with Snapshot and
// Restore puts the terminal back the way it was.
//
// Two variants exist, selected at build time: the real guard on unix, and a
// no-op guard on Windows, where the console is not left corrupted by an
// exiting child the way a unix tty is.
package term

// Snapshot captures the terminal attributes of fd. When fd does not refer
// to an interactive terminal it returns a nil state, which Restore treats
// as a no-op.
func Snapshot(fd int) (*State, error) {
	return snapshot(fd)
}

// Restore flushes pending terminal I/O and reapplies the attributes
// captured by Snapshot. A nil state, or an fd that no longer refers to a
// terminal, restores nothing.
func Restore(fd int, state *State) error {
	return restore(fd, state)
}
