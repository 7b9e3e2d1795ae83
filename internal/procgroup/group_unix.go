//go:build !windows

package procgroup

// Group is the no-op tracking variant. Spawned workers get their own
// session process group and the spawner signals the whole group by negative
// pid, so there is no per-child bookkeeping to do here.
type Group struct{}

func newGroup() (*Group, error) {
	return &Group{}, nil
}

// Add records pid as a member of the group. Nothing to do on unix; adding
// the same pid repeatedly always succeeds.
func (g *Group) Add(pid int) error {
	return nil
}

// Close releases the group.
func (g *Group) Close() error {
	return nil
}
