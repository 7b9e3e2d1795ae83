// Package procgroup tracks spawned worker processes so that tearing down a
// worker tears down everything the worker transitively spawned.
//
// On Windows a kernel job object configured with kill-on-close does the
// tracking: every spawned pid is assigned to the job, and closing the job
// handle (including implicitly at supervisor exit) terminates all members.
// On unix the group is a no-op holder; session process groups created at
// spawn time plus negative-pid signaling in the spawner cover teardown, so
// there is nothing to track per child.
package procgroup

// New creates the supervisor's tracking group. One group is created per
// supervisor session and passed explicitly to the spawner; constructing
// independent instances in tests is supported.
func New() (*Group, error) {
	return newGroup()
}
